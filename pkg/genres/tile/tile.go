// Package tile implements the raster tile genres: the OpenStreetMap base
// map and generic templated XYZ sources.
//
// Both create a single tile node synchronously. Cosmetic edits are patched
// onto the existing node; a change to any field that defines the tile
// source rebuilds it.
package tile

import (
	"strconv"
	"strings"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/surface"
)

// Genre ids.
const (
	OSMGenre layer.GenreID = "osm-tile-raster"
	XYZGenre layer.GenreID = "xyz-tile-raster"
)

// Source fields of the tile specs.
const (
	FieldURL           layer.Field = "URL"
	FieldAttributions  layer.Field = "Attributions"
	FieldTileSize      layer.Field = "TileSize"
	FieldMinSourceZoom layer.Field = "MinSourceZoom"
	FieldMaxSourceZoom layer.Field = "MaxSourceZoom"
	FieldProjection    layer.Field = "Projection"
	FieldCrossOrigin   layer.Field = "CrossOrigin"
)

// DefaultOSMURL is the standard OpenStreetMap tile server.
const DefaultOSMURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// OSM is the spec of an OpenStreetMap layer.
type OSM struct {
	layer.Attrs   `yaml:",inline"`
	URL           string   `toml:"url" yaml:"url" json:"url"`
	Attributions  []string `toml:"attributions,omitempty" yaml:"attributions,omitempty" json:"attributions,omitempty"`
	MaxSourceZoom int      `toml:"max_source_zoom" yaml:"max_source_zoom" json:"max_source_zoom"`
	CrossOrigin   string   `toml:"cross_origin,omitempty" yaml:"cross_origin,omitempty" json:"cross_origin,omitempty"`
}

// Genre returns [OSMGenre].
func (*OSM) Genre() layer.GenreID { return OSMGenre }

// NewOSMSpec returns an OSM spec with the public tile server.
func NewOSMSpec(id layer.ID) *OSM {
	return &OSM{
		Attrs:         layer.DefaultAttrs(id),
		URL:           DefaultOSMURL,
		Attributions:  []string{"© OpenStreetMap contributors"},
		MaxSourceZoom: 19,
		CrossOrigin:   "anonymous",
	}
}

// XYZ is the spec of a templated tile source.
type XYZ struct {
	layer.Attrs   `yaml:",inline"`
	URL           string   `toml:"url" yaml:"url" json:"url"`
	Attributions  []string `toml:"attributions,omitempty" yaml:"attributions,omitempty" json:"attributions,omitempty"`
	TileSize      int      `toml:"tile_size" yaml:"tile_size" json:"tile_size"`
	MinSourceZoom int      `toml:"min_source_zoom" yaml:"min_source_zoom" json:"min_source_zoom"`
	MaxSourceZoom int      `toml:"max_source_zoom" yaml:"max_source_zoom" json:"max_source_zoom"`
	Projection    string   `toml:"projection" yaml:"projection" json:"projection"`
	CrossOrigin   string   `toml:"cross_origin,omitempty" yaml:"cross_origin,omitempty" json:"cross_origin,omitempty"`
}

// Genre returns [XYZGenre].
func (*XYZ) Genre() layer.GenreID { return XYZGenre }

// NewXYZSpec returns an XYZ spec for url with 256 pixel web mercator tiles.
func NewXYZSpec(id layer.ID, url string) *XYZ {
	return &XYZ{
		Attrs:         layer.DefaultAttrs(id),
		URL:           url,
		TileSize:      256,
		MaxSourceZoom: 18,
		Projection:    "EPSG:3857",
	}
}

// OSMTriggers are the OSM fields whose change rebuilds the node.
var OSMTriggers = []layer.Field{FieldURL, FieldAttributions, FieldMaxSourceZoom, FieldCrossOrigin}

// XYZTriggers are the XYZ fields whose change rebuilds the node.
var XYZTriggers = []layer.Field{
	FieldURL, FieldAttributions, FieldTileSize, FieldMinSourceZoom,
	FieldMaxSourceZoom, FieldProjection, FieldCrossOrigin,
}

// OSMHandler renders [OSM] specs.
type OSMHandler struct{}

// NewOSM creates the OSM handler.
func NewOSM() *OSMHandler { return &OSMHandler{} }

func (*OSMHandler) ID() layer.GenreID   { return OSMGenre }
func (*OSMHandler) NewSpec() layer.Spec { return NewOSMSpec("") }

func (*OSMHandler) Validate(spec layer.Spec) error {
	s, err := genre.SpecAs[*OSM](spec)
	if err != nil {
		return err
	}
	if err := genre.ValidateAttrs(&s.Attrs); err != nil {
		return err
	}
	return validateTemplate(s.URL)
}

func (*OSMHandler) CreateNodes(_ *genre.Env, target *surface.Collection, spec layer.Spec) error {
	s, err := genre.SpecAs[*OSM](spec)
	if err != nil {
		return err
	}
	target.Append(surface.NewNode(s, surface.KindTile, surface.Source{
		Type:         "osm",
		URL:          s.URL,
		Projection:   "EPSG:3857",
		Attributions: s.Attributions,
		Params: params(map[string]int{
			"max_zoom": s.MaxSourceZoom,
		}, s.CrossOrigin),
	}))
	return nil
}

func (h *OSMHandler) SyncNodes(env *genre.Env, target *surface.Collection, m *genre.Match) (bool, error) {
	return genre.SyncCommon(h, env, target, m, OSMTriggers...)
}

// XYZHandler renders [XYZ] specs.
type XYZHandler struct{}

// NewXYZ creates the XYZ handler.
func NewXYZ() *XYZHandler { return &XYZHandler{} }

func (*XYZHandler) ID() layer.GenreID   { return XYZGenre }
func (*XYZHandler) NewSpec() layer.Spec { return NewXYZSpec("", "") }

func (*XYZHandler) Validate(spec layer.Spec) error {
	s, err := genre.SpecAs[*XYZ](spec)
	if err != nil {
		return err
	}
	if err := genre.ValidateAttrs(&s.Attrs); err != nil {
		return err
	}
	if s.TileSize <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "tile size must be positive, got %d", s.TileSize)
	}
	if s.MaxSourceZoom > 0 && s.MinSourceZoom > s.MaxSourceZoom {
		return errors.New(errors.ErrCodeInvalidInput, "min source zoom %d greater than max %d", s.MinSourceZoom, s.MaxSourceZoom)
	}
	return validateTemplate(s.URL)
}

func (*XYZHandler) CreateNodes(_ *genre.Env, target *surface.Collection, spec layer.Spec) error {
	s, err := genre.SpecAs[*XYZ](spec)
	if err != nil {
		return err
	}
	target.Append(surface.NewNode(s, surface.KindTile, surface.Source{
		Type:         "xyz",
		URL:          s.URL,
		Projection:   s.Projection,
		Attributions: s.Attributions,
		Params: params(map[string]int{
			"tile_size": s.TileSize,
			"min_zoom":  s.MinSourceZoom,
			"max_zoom":  s.MaxSourceZoom,
		}, s.CrossOrigin),
	}))
	return nil
}

func (h *XYZHandler) SyncNodes(env *genre.Env, target *surface.Collection, m *genre.Match) (bool, error) {
	return genre.SyncCommon(h, env, target, m, XYZTriggers...)
}

func validateTemplate(url string) error {
	if err := genre.Require(FieldURL, url); err != nil {
		return err
	}
	if err := errors.ValidateURL(url); err != nil {
		return err
	}
	if !strings.Contains(url, "{z}") {
		return errors.New(errors.ErrCodeInvalidInput, "tile URL %q has no {z} placeholder", url)
	}
	return nil
}

func params(ints map[string]int, crossOrigin string) map[string]string {
	out := make(map[string]string, len(ints)+1)
	for k, v := range ints {
		if v != 0 {
			out[k] = strconv.Itoa(v)
		}
	}
	if crossOrigin != "" {
		out["cross_origin"] = crossOrigin
	}
	return out
}

var (
	_ genre.Handler   = (*OSMHandler)(nil)
	_ genre.Validator = (*OSMHandler)(nil)
	_ genre.Factory   = (*OSMHandler)(nil)
	_ genre.Handler   = (*XYZHandler)(nil)
	_ genre.Validator = (*XYZHandler)(nil)
	_ genre.Factory   = (*XYZHandler)(nil)
)
