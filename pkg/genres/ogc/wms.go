package ogc

import (
	"context"
	"slices"

	"github.com/matzehuels/mapstack/pkg/capab"
	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
	"github.com/matzehuels/mapstack/pkg/surface"
)

// WMS genre ids.
const (
	WMSGenre      layer.GenreID = "wms-from-capab"
	WMSTiledGenre layer.GenreID = "wms-tile-capab"
)

// WMS is a layer of a Web Map Service.
type WMS struct {
	layer.Attrs `yaml:",inline"`
	Service     `yaml:",inline"`

	// ServerType names the server software, for vendor parameters such
	// as high DPI rendering. One of "geoserver", "mapserver", "qgis" or "".
	ServerType string `toml:"server_type,omitempty" yaml:"server_type,omitempty" json:"server_type,omitempty"`

	// Format is the image format. Empty picks one the server offers.
	Format string `toml:"format,omitempty" yaml:"format,omitempty" json:"format,omitempty"`

	// Version is the requested protocol version.
	Version string `toml:"version,omitempty" yaml:"version,omitempty" json:"version,omitempty"`

	genre layer.GenreID
}

// Genre returns the WMS genre the spec was made for.
func (s *WMS) Genre() layer.GenreID {
	if s.genre == "" {
		return WMSGenre
	}
	return s.genre
}

// NewWMSSpec returns a single image WMS spec.
func NewWMSSpec(id layer.ID, serviceURL, layerName string) *WMS {
	return &WMS{
		Attrs:   layer.DefaultAttrs(id),
		Service: Service{ServiceURL: serviceURL, LayerName: layerName},
		Version: "1.3.0",
	}
}

// NewWMSTiledSpec returns a tiled WMS spec.
func NewWMSTiledSpec(id layer.ID, serviceURL, layerName string) *WMS {
	s := NewWMSSpec(id, serviceURL, layerName)
	s.genre = WMSTiledGenre
	return s
}

// WMSTriggers are the fields whose change refetches the capabilities.
var WMSTriggers = []layer.Field{
	FieldServiceURL, FieldLayerName, layer.FieldExtent,
	FieldFormat, FieldServerType, FieldVersion,
}

var serverTypes = []string{"", "geoserver", "mapserver", "qgis"}

// preferredFormats are picked in order when a spec names no format.
var preferredFormats = []string{"image/png", "image/png8", "image/jpeg"}

// WMSHandler creates WMS layers.
type WMSHandler struct {
	fetcher Fetcher
	tiled   bool
}

// NewWMS creates the single image WMS handler.
func NewWMS(f Fetcher) *WMSHandler { return &WMSHandler{fetcher: f} }

// NewWMSTiled creates the handler requesting the image per tile.
func NewWMSTiled(f Fetcher) *WMSHandler { return &WMSHandler{fetcher: f, tiled: true} }

func (h *WMSHandler) ID() layer.GenreID {
	if h.tiled {
		return WMSTiledGenre
	}
	return WMSGenre
}

func (h *WMSHandler) NewSpec() layer.Spec {
	if h.tiled {
		return NewWMSTiledSpec("", "", "")
	}
	return NewWMSSpec("", "", "")
}

func (h *WMSHandler) Validate(spec layer.Spec) error {
	s, err := genre.SpecAs[*WMS](spec)
	if err != nil {
		return err
	}
	if err := validate(&s.Attrs, s.Service); err != nil {
		return err
	}
	if !slices.Contains(serverTypes, s.ServerType) {
		return errors.Configuration("unknown server type %q", s.ServerType)
	}
	return nil
}

func (h *WMSHandler) CreateNodes(env *genre.Env, target *surface.Collection, spec layer.Spec) error {
	s, err := genre.SpecAs[*WMS](spec)
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

func (h *WMSHandler) SyncNodes(env *genre.Env, target *surface.Collection, m *genre.Match) (bool, error) {
	return genre.SyncCommon(h, env, target, m, WMSTriggers...)
}

func (h *WMSHandler) build(ctx context.Context, s *WMS, p proj.Projection) (*surface.Node, error) {
	extra := map[string]string{"LAYERS": s.LayerName}
	if s.Version != "" {
		extra["VERSION"] = s.Version
	}
	doc, err := capabilities(ctx, h.fetcher, capab.ServiceWMS, CapabilitiesURL(s.ServiceURL, capab.ServiceWMS, extra))
	if err != nil {
		return nil, err
	}
	wms := doc.(*capab.WMS)
	l, err := wms.Layer(s.LayerName)
	if err != nil {
		return nil, layerError(err)
	}

	params := map[string]string{"LAYERS": l.Name, "STYLES": ""}
	kind := surface.KindImage
	if h.tiled {
		params["TILED"] = "true"
		kind = surface.KindTile
	}
	if s.ServerType != "" {
		params["server_type"] = s.ServerType
	}
	version := wms.Version
	if version == "" {
		version = s.Version
	}
	n := surface.NewNode(s, kind, surface.Source{
		Type:       "wms",
		URL:        s.ServiceURL,
		Params:     params,
		Format:     wmsFormat(s.Format, wms.Capability.Request.GetMap.Formats),
		Projection: p.Code,
		Version:    version,
	})
	if n.Title == "" {
		n.Title = l.Title
	}
	computed, err := WMSExtent(wms, l, p)
	if err != nil {
		return nil, err
	}
	n.Extent = explicitOr(&s.Attrs, computed)
	return n, nil
}

// WMSExtent derives the extent of l in p. A bounding box in p is used as is;
// otherwise the first bounding box, then the geographic box, is reprojected.
// It returns nil if the layer advertises no bounds.
func WMSExtent(doc *capab.WMS, l *capab.WMSLayer, p proj.Projection) (*layer.Extent, error) {
	swap := doc.VersionAtLeast("1.3.0")
	for _, bb := range l.BoundingBoxes {
		if proj.Equivalent(bb.Code(), p.Code) {
			e, err := project(bb.Extent(), bb.Code(), swap, p)
			if err != nil {
				return nil, err
			}
			return e.Ptr(), nil
		}
	}
	if len(l.BoundingBoxes) > 0 {
		bb := l.BoundingBoxes[0]
		if e, err := project(bb.Extent(), bb.Code(), swap, p); err == nil {
			return e.Ptr(), nil
		}
	}
	if g, ok := l.Geographic(); ok {
		e, err := geographic(g, p)
		if err != nil {
			return nil, err
		}
		return e.Ptr(), nil
	}
	return nil, nil
}

func wmsFormat(want string, offered []string) string {
	if want != "" {
		return want
	}
	for _, f := range preferredFormats {
		if slices.Contains(offered, f) {
			return f
		}
	}
	return firstOr(offered, "image/png")
}

var (
	_ genre.Handler   = (*WMSHandler)(nil)
	_ genre.Validator = (*WMSHandler)(nil)
	_ genre.Factory   = (*WMSHandler)(nil)
)
