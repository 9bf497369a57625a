package capab

import (
	"strings"

	"github.com/matzehuels/mapstack/pkg/layer"
)

// WMS is a WMS 1.1.1 (WMT_MS_Capabilities) or 1.3.0 (WMS_Capabilities)
// document.
type WMS struct {
	Version string `xml:"version,attr"`
	Info    struct {
		Title    string `xml:"Title"`
		Abstract string `xml:"Abstract"`
	} `xml:"Service"`
	Capability struct {
		Request struct {
			GetMap struct {
				Formats []string `xml:"Format"`
			} `xml:"GetMap"`
		} `xml:"Request"`
		Layer WMSLayer `xml:"Layer"`
	} `xml:"Capability"`
}

// WMSLayer is a layer element; layers nest arbitrarily deep.
type WMSLayer struct {
	Name     string   `xml:"Name"`
	Title    string   `xml:"Title"`
	Abstract string   `xml:"Abstract"`
	CRS      []string `xml:"CRS"` // 1.3.0
	SRS      []string `xml:"SRS"` // 1.1.1

	// GeographicBox is EX_GeographicBoundingBox (1.3.0) in degrees.
	GeographicBox *struct {
		West  float64 `xml:"westBoundLongitude"`
		East  float64 `xml:"eastBoundLongitude"`
		South float64 `xml:"southBoundLatitude"`
		North float64 `xml:"northBoundLatitude"`
	} `xml:"EX_GeographicBoundingBox"`

	// LatLonBox is LatLonBoundingBox (1.1.1) in degrees.
	LatLonBox *BoundingBox `xml:"LatLonBoundingBox"`

	BoundingBoxes []BoundingBox `xml:"BoundingBox"`
	Layers        []WMSLayer    `xml:"Layer"`
}

// BoundingBox is a WMS bounding box in the axis order of its CRS.
type BoundingBox struct {
	CRS  string  `xml:"CRS,attr"`
	SRS  string  `xml:"SRS,attr"`
	MinX float64 `xml:"minx,attr"`
	MinY float64 `xml:"miny,attr"`
	MaxX float64 `xml:"maxx,attr"`
	MaxY float64 `xml:"maxy,attr"`
}

// Code returns the CRS of the box, whichever attribute carries it.
func (b BoundingBox) Code() string {
	if b.CRS != "" {
		return b.CRS
	}
	return b.SRS
}

// Extent returns the box as written, without any axis correction.
func (b BoundingBox) Extent() layer.Extent {
	return layer.NewExtent(b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// ParseWMS decodes a WMS capabilities document.
func ParseWMS(data []byte) (*WMS, error) {
	var doc WMS
	if err := decode(data, &doc, ServiceWMS); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Layer finds the named layer anywhere in the layer hierarchy.
func (w *WMS) Layer(name string) (*WMSLayer, error) {
	if l := w.Capability.Layer.find(name); l != nil {
		return l, nil
	}
	return nil, &ErrLayerNotFound{Service: ServiceWMS, Name: name}
}

func (l *WMSLayer) find(name string) *WMSLayer {
	if l.Name == name {
		return l
	}
	for i := range l.Layers {
		if f := l.Layers[i].find(name); f != nil {
			return f
		}
	}
	return nil
}

// NamedLayers returns every layer with a name, depth first.
func (w *WMS) NamedLayers() []*WMSLayer {
	var out []*WMSLayer
	var walk func(l *WMSLayer)
	walk = func(l *WMSLayer) {
		if l.Name != "" {
			out = append(out, l)
		}
		for i := range l.Layers {
			walk(&l.Layers[i])
		}
	}
	walk(&w.Capability.Layer)
	return out
}

// CRSList returns the coordinate systems the layer declares itself.
func (l *WMSLayer) CRSList() []string {
	if len(l.CRS) > 0 {
		return l.CRS
	}
	// 1.1.1 servers sometimes pack several codes into one SRS element.
	var out []string
	for _, s := range l.SRS {
		out = append(out, strings.Fields(s)...)
	}
	return out
}

// Geographic returns the lon/lat bounds of the layer, if declared.
func (l *WMSLayer) Geographic() (layer.Extent, bool) {
	switch {
	case l.GeographicBox != nil:
		g := l.GeographicBox
		return layer.NewExtent(g.West, g.South, g.East, g.North), true
	case l.LatLonBox != nil:
		return l.LatLonBox.Extent(), true
	}
	return layer.Extent{}, false
}

func (w *WMS) Service() string    { return ServiceWMS }
func (w *WMS) DocVersion() string { return w.Version }

func (w *WMS) LayerInfos() []LayerInfo {
	var out []LayerInfo
	for _, l := range w.NamedLayers() {
		info := LayerInfo{Name: l.Name, Title: l.Title, CRS: l.CRSList()}
		if e, ok := l.Geographic(); ok {
			info.Extent = e.Ptr()
		}
		out = append(out, info)
	}
	return out
}

// VersionAtLeast reports whether the document version is v or later.
func (w *WMS) VersionAtLeast(v string) bool { return versionAtLeast(w.Version, v) }
