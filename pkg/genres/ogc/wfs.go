package ogc

import (
	"context"
	"strings"

	"github.com/matzehuels/mapstack/pkg/capab"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
	"github.com/matzehuels/mapstack/pkg/surface"
)

// WFSGenre is the id of the WFS genre.
const WFSGenre layer.GenreID = "wfs-from-capab"

// WFS is a feature type of a Web Feature Service.
type WFS struct {
	layer.Attrs `yaml:",inline"`
	Service     `yaml:",inline"`

	// OutputFormat is the GetFeature format. Empty prefers JSON.
	OutputFormat string `toml:"output_format,omitempty" yaml:"output_format,omitempty" json:"output_format,omitempty"`
}

// Genre returns [WFSGenre].
func (*WFS) Genre() layer.GenreID { return WFSGenre }

// NewWFSSpec returns a WFS spec.
func NewWFSSpec(id layer.ID, serviceURL, typeName string) *WFS {
	return &WFS{
		Attrs:   layer.DefaultAttrs(id),
		Service: Service{ServiceURL: serviceURL, LayerName: typeName},
	}
}

// WFSTriggers are the fields whose change refetches the capabilities.
var WFSTriggers = []layer.Field{FieldServiceURL, FieldLayerName, layer.FieldExtent, FieldOutputFormat}

// WFSHandler creates WFS layers.
type WFSHandler struct {
	fetcher Fetcher
}

// NewWFS creates the WFS handler.
func NewWFS(f Fetcher) *WFSHandler { return &WFSHandler{fetcher: f} }

func (*WFSHandler) ID() layer.GenreID   { return WFSGenre }
func (*WFSHandler) NewSpec() layer.Spec { return NewWFSSpec("", "", "") }

func (*WFSHandler) Validate(spec layer.Spec) error {
	s, err := genre.SpecAs[*WFS](spec)
	if err != nil {
		return err
	}
	return validate(&s.Attrs, s.Service)
}

func (h *WFSHandler) CreateNodes(env *genre.Env, target *surface.Collection, spec layer.Spec) error {
	s, err := genre.SpecAs[*WFS](spec)
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

func (h *WFSHandler) SyncNodes(env *genre.Env, target *surface.Collection, m *genre.Match) (bool, error) {
	return genre.SyncCommon(h, env, target, m, WFSTriggers...)
}

func (h *WFSHandler) build(ctx context.Context, s *WFS, p proj.Projection) (*surface.Node, error) {
	doc, err := capabilities(ctx, h.fetcher, capab.ServiceWFS, CapabilitiesURL(s.ServiceURL, capab.ServiceWFS, nil))
	if err != nil {
		return nil, err
	}
	wfs := doc.(*capab.WFS)
	ft, err := wfs.FeatureType(s.LayerName)
	if err != nil {
		return nil, layerError(err)
	}

	n := surface.NewNode(s, surface.KindVector, surface.Source{
		Type:       "wfs",
		URL:        s.ServiceURL,
		Params:     map[string]string{"TYPENAME": ft.Name, "SRSNAME": p.Code},
		Format:     wfsFormat(s.OutputFormat, wfs.OutputFormats(ft)),
		Projection: p.Code,
		Version:    wfs.Version,
	})
	if n.Title == "" {
		n.Title = ft.Title
	}
	var computed *layer.Extent
	if g, err := ft.WGS84Box.Extent(); err == nil {
		e, err := geographic(g, p)
		if err != nil {
			return nil, err
		}
		computed = e.Ptr()
	}
	n.Extent = explicitOr(&s.Attrs, computed)
	return n, nil
}

func wfsFormat(want string, offered []string) string {
	if want != "" {
		return want
	}
	for _, f := range offered {
		if strings.Contains(strings.ToLower(f), "json") {
			return f
		}
	}
	return firstOr(offered, "application/json")
}

var (
	_ genre.Handler   = (*WFSHandler)(nil)
	_ genre.Validator = (*WFSHandler)(nil)
	_ genre.Factory   = (*WFSHandler)(nil)
)
