// Package vector implements the GeoJSON vector genre.
package vector

import (
	"encoding/json"
	"strconv"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/surface"
)

// Genre is the id of the GeoJSON genre.
const Genre layer.GenreID = "geojson-vector"

// Fields of [GeoJSON].
const (
	FieldURL   layer.Field = "URL"
	FieldData  layer.Field = "Data"
	FieldStyle layer.Field = "Style"
)

// Style is the drawing style of features.
type Style struct {
	Stroke string  `toml:"stroke,omitempty" yaml:"stroke,omitempty" json:"stroke,omitempty"`
	Fill   string  `toml:"fill,omitempty" yaml:"fill,omitempty" json:"fill,omitempty"`
	Width  float64 `toml:"width,omitempty" yaml:"width,omitempty" json:"width,omitempty"`
}

// GeoJSON is a vector layer read from a URL or from inline data.
type GeoJSON struct {
	layer.Attrs `yaml:",inline"`
	URL         string `toml:"url,omitempty" yaml:"url,omitempty" json:"url,omitempty"`
	Data        string `toml:"data,omitempty" yaml:"data,omitempty" json:"data,omitempty"`
	Style       Style  `toml:"style" yaml:"style" json:"style"`
}

// Genre returns [Genre].
func (*GeoJSON) Genre() layer.GenreID { return Genre }

// NewSpec returns a GeoJSON spec with the default style.
func NewSpec(id layer.ID) *GeoJSON {
	return &GeoJSON{
		Attrs: layer.DefaultAttrs(id),
		Style: Style{Stroke: "#3388ff", Fill: "rgba(51,136,255,0.2)", Width: 2},
	}
}

// Handler renders [GeoJSON] specs.
type Handler struct {
	triggers []layer.Field
}

// New creates the handler. Changes to fields in triggers rebuild the node;
// without triggers every edit is applied in place.
func New(triggers ...layer.Field) *Handler {
	return &Handler{triggers: triggers}
}

func (*Handler) ID() layer.GenreID   { return Genre }
func (*Handler) NewSpec() layer.Spec { return NewSpec("") }

func (*Handler) Validate(spec layer.Spec) error {
	s, err := genre.SpecAs[*GeoJSON](spec)
	if err != nil {
		return err
	}
	if err := genre.ValidateAttrs(&s.Attrs); err != nil {
		return err
	}
	switch {
	case s.URL == "" && s.Data == "":
		return errors.Configuration("one of %s or %s is required", FieldURL, FieldData)
	case s.URL != "" && s.Data != "":
		return errors.Configuration("%s and %s are mutually exclusive", FieldURL, FieldData)
	case s.URL != "":
		return errors.ValidateURL(s.URL)
	case !json.Valid([]byte(s.Data)):
		return errors.New(errors.ErrCodeInvalidFormat, "inline data is not valid JSON")
	}
	return nil
}

func (*Handler) CreateNodes(_ *genre.Env, target *surface.Collection, spec layer.Spec) error {
	s, err := genre.SpecAs[*GeoJSON](spec)
	if err != nil {
		return err
	}
	target.Append(newNode(s))
	return nil
}

// SyncNodes rebuilds on trigger changes. Source and style edits outside the
// triggers are written onto the existing node.
func (h *Handler) SyncNodes(env *genre.Env, target *surface.Collection, m *genre.Match) (bool, error) {
	s, err := genre.SpecAs[*GeoJSON](m.Spec)
	if err != nil {
		return false, err
	}
	recreate, err := genre.SyncCommon(h, env, target, m, h.triggers...)
	if err != nil || recreate {
		return recreate, err
	}
	src := newNode(s).Source
	for _, n := range m.Nodes {
		n.Source = src
	}
	return false, nil
}

func newNode(s *GeoJSON) *surface.Node {
	src := surface.Source{Type: "geojson", URL: s.URL, Format: "application/geo+json", Projection: "EPSG:4326"}
	params := map[string]string{}
	if s.Data != "" {
		params["data"] = s.Data
	}
	if s.Style.Stroke != "" {
		params["stroke"] = s.Style.Stroke
	}
	if s.Style.Fill != "" {
		params["fill"] = s.Style.Fill
	}
	if s.Style.Width > 0 {
		params["width"] = strconv.FormatFloat(s.Style.Width, 'g', -1, 64)
	}
	src.Params = params
	return surface.NewNode(s, surface.KindVector, src)
}

var (
	_ genre.Handler   = (*Handler)(nil)
	_ genre.Validator = (*Handler)(nil)
	_ genre.Factory   = (*Handler)(nil)
)
