package ogc

import (
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/mapstack/pkg/capab"
	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
	"github.com/matzehuels/mapstack/pkg/surface"
)

// WMTSGenre is the id of the WMTS genre.
const WMTSGenre layer.GenreID = "wmts-from-capab"

// WMTS is a layer of a Web Map Tile Service. Empty fields are chosen from
// the capabilities.
type WMTS struct {
	layer.Attrs `yaml:",inline"`
	Service     `yaml:",inline"`
	MatrixSet   string `toml:"matrix_set,omitempty" yaml:"matrix_set,omitempty" json:"matrix_set,omitempty"`
	Style       string `toml:"style,omitempty" yaml:"style,omitempty" json:"style,omitempty"`
	Format      string `toml:"format,omitempty" yaml:"format,omitempty" json:"format,omitempty"`
}

// Genre returns [WMTSGenre].
func (*WMTS) Genre() layer.GenreID { return WMTSGenre }

// NewWMTSSpec returns a WMTS spec.
func NewWMTSSpec(id layer.ID, serviceURL, layerName string) *WMTS {
	return &WMTS{
		Attrs:   layer.DefaultAttrs(id),
		Service: Service{ServiceURL: serviceURL, LayerName: layerName},
	}
}

// WMTSTriggers are the fields whose change refetches the capabilities.
var WMTSTriggers = []layer.Field{
	FieldServiceURL, FieldLayerName, layer.FieldExtent,
	FieldMatrixSet, FieldStyle, FieldFormat,
}

// WMTSHandler creates WMTS layers.
type WMTSHandler struct {
	fetcher Fetcher
}

// NewWMTS creates the WMTS handler.
func NewWMTS(f Fetcher) *WMTSHandler { return &WMTSHandler{fetcher: f} }

func (*WMTSHandler) ID() layer.GenreID   { return WMTSGenre }
func (*WMTSHandler) NewSpec() layer.Spec { return NewWMTSSpec("", "", "") }

func (*WMTSHandler) Validate(spec layer.Spec) error {
	s, err := genre.SpecAs[*WMTS](spec)
	if err != nil {
		return err
	}
	return validate(&s.Attrs, s.Service)
}

func (h *WMTSHandler) CreateNodes(env *genre.Env, target *surface.Collection, spec layer.Spec) error {
	s, err := genre.SpecAs[*WMTS](spec)
	if err != nil {
		return err
	}
	p := env.Surface.Projection()
	env.Go(spec, target, func(ctx context.Context) ([]*surface.Node, error) {
		n, err := h.build(ctx, s, p)
		if err != nil {
			return nil, err
		}
		return []*surface.Node{n}, nil
	})
	return nil
}

func (h *WMTSHandler) SyncNodes(env *genre.Env, target *surface.Collection, m *genre.Match) (bool, error) {
	return genre.SyncCommon(h, env, target, m, WMTSTriggers...)
}

func (h *WMTSHandler) build(ctx context.Context, s *WMTS, p proj.Projection) (*surface.Node, error) {
	doc, err := capabilities(ctx, h.fetcher, capab.ServiceWMTS, CapabilitiesURL(s.ServiceURL, capab.ServiceWMTS, nil))
	if err != nil {
		return nil, err
	}
	wmts := doc.(*capab.WMTS)
	l, err := wmts.Layer(s.LayerName)
	if err != nil {
		return nil, layerError(err)
	}
	ms, err := MatrixSet(wmts, l, s.MatrixSet, p)
	if err != nil {
		return nil, err
	}
	style := s.Style
	if style == "" {
		style = l.DefaultStyle()
	}
	format := s.Format
	if format == "" {
		format = firstOr(l.Formats, "image/png")
	}

	src := surface.Source{
		Type:       "wmts",
		Format:     format,
		Projection: proj.Normalize(ms.SupportedCRS),
		Version:    wmts.Version,
	}
	if tmpl, _ := l.TileTemplate(format); tmpl != "" {
		src.URL = strings.NewReplacer("{Style}", style, "{TileMatrixSet}", ms.Identifier).Replace(tmpl)
		src.Params = map[string]string{"encoding": "REST"}
	} else {
		src.URL = wmts.GetTileURL()
		if src.URL == "" {
			src.URL = s.ServiceURL
		}
		src.Params = map[string]string{
			"encoding":      "KVP",
			"LAYER":         l.Identifier,
			"STYLE":         style,
			"TILEMATRIXSET": ms.Identifier,
		}
	}
	n := surface.NewNode(s, surface.KindTile, src)
	if n.Title == "" {
		n.Title = l.Title
	}
	var computed *layer.Extent
	if g, err := l.WGS84Box.Extent(); err == nil {
		e, err := geographic(g, p)
		if err != nil {
			return nil, err
		}
		computed = e.Ptr()
	}
	n.Extent = explicitOr(&s.Attrs, computed)
	return n, nil
}

// MatrixSet picks the tile matrix set of l: the one named by want, else
// the first whose CRS is p, else the first linked.
func MatrixSet(doc *capab.WMTS, l *capab.WMTSLayer, want string, p proj.Projection) (*capab.TileMatrixSet, error) {
	if want != "" {
		if !slices.Contains(l.MatrixSets, want) {
			return nil, errors.New(errors.ErrCodeLayerNotFound, "layer %q has no matrix set %q", l.Identifier, want)
		}
		if ms, ok := doc.MatrixSet(want); ok {
			return ms, nil
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "matrix set %q is not defined", want)
	}
	var first *capab.TileMatrixSet
	for _, id := range l.MatrixSets {
		ms, ok := doc.MatrixSet(id)
		if !ok {
			continue
		}
		if proj.Equivalent(ms.SupportedCRS, p.Code) {
			return ms, nil
		}
		if first == nil {
			first = ms
		}
	}
	if first == nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "layer %q links no known matrix set", l.Identifier)
	}
	return first, nil
}

var (
	_ genre.Handler   = (*WMTSHandler)(nil)
	_ genre.Validator = (*WMTSHandler)(nil)
	_ genre.Factory   = (*WMTSHandler)(nil)
)
