package capab

// WMTS is a WMTS 1.0.0 capabilities document.
type WMTS struct {
	Version    string `xml:"version,attr"`
	Operations []struct {
		Name string `xml:"name,attr"`
		Get  []struct {
			Href     string   `xml:"href,attr"`
			Encoding []string `xml:"Constraint>AllowedValues>Value"`
		} `xml:"DCP>HTTP>Get"`
	} `xml:"OperationsMetadata>Operation"`
	Layers         []WMTSLayer     `xml:"Contents>Layer"`
	TileMatrixSets []TileMatrixSet `xml:"Contents>TileMatrixSet"`
}

// WMTSLayer is one layer of a WMTS.
type WMTSLayer struct {
	Identifier string   `xml:"Identifier"`
	Title      string   `xml:"Title"`
	WGS84Box   *Corners `xml:"WGS84BoundingBox"`
	Styles     []struct {
		Identifier string `xml:"Identifier"`
		IsDefault  bool   `xml:"isDefault,attr"`
	} `xml:"Style"`
	Formats      []string `xml:"Format"`
	MatrixSets   []string `xml:"TileMatrixSetLink>TileMatrixSet"`
	ResourceURLs []struct {
		Format       string `xml:"format,attr"`
		ResourceType string `xml:"resourceType,attr"`
		Template     string `xml:"template,attr"`
	} `xml:"ResourceURL"`
}

// TileMatrixSet is a tiling scheme of a WMTS.
type TileMatrixSet struct {
	Identifier   string `xml:"Identifier"`
	SupportedCRS string `xml:"SupportedCRS"`
}

// ParseWMTS decodes a WMTS capabilities document.
func ParseWMTS(data []byte) (*WMTS, error) {
	var doc WMTS
	if err := decode(data, &doc, ServiceWMTS); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Layer finds a layer by identifier.
func (w *WMTS) Layer(id string) (*WMTSLayer, error) {
	for i := range w.Layers {
		if w.Layers[i].Identifier == id {
			return &w.Layers[i], nil
		}
	}
	return nil, &ErrLayerNotFound{Service: ServiceWMTS, Name: id}
}

// MatrixSet finds a tile matrix set by identifier.
func (w *WMTS) MatrixSet(id string) (*TileMatrixSet, bool) {
	for i := range w.TileMatrixSets {
		if w.TileMatrixSets[i].Identifier == id {
			return &w.TileMatrixSets[i], true
		}
	}
	return nil, false
}

// GetTileURL returns the KVP endpoint of GetTile, if advertised.
func (w *WMTS) GetTileURL() string {
	for _, op := range w.Operations {
		if op.Name != "GetTile" {
			continue
		}
		for _, g := range op.Get {
			if len(g.Encoding) == 0 {
				return g.Href
			}
			for _, e := range g.Encoding {
				if e == "KVP" {
					return g.Href
				}
			}
		}
	}
	return ""
}

// DefaultStyle returns the default style, or the first one.
func (l *WMTSLayer) DefaultStyle() string {
	for _, s := range l.Styles {
		if s.IsDefault {
			return s.Identifier
		}
	}
	if len(l.Styles) > 0 {
		return l.Styles[0].Identifier
	}
	return ""
}

// TileTemplate returns the REST tile URL template for format, or for any
// format if format is empty.
func (l *WMTSLayer) TileTemplate(format string) (string, string) {
	for _, r := range l.ResourceURLs {
		if r.ResourceType == "tile" && (format == "" || r.Format == format) {
			return r.Template, r.Format
		}
	}
	return "", ""
}

func (w *WMTS) Service() string    { return ServiceWMTS }
func (w *WMTS) DocVersion() string { return w.Version }

func (w *WMTS) LayerInfos() []LayerInfo {
	out := make([]LayerInfo, 0, len(w.Layers))
	for i := range w.Layers {
		l := &w.Layers[i]
		info := LayerInfo{Name: l.Identifier, Title: l.Title}
		for _, id := range l.MatrixSets {
			if ms, ok := w.MatrixSet(id); ok {
				info.CRS = append(info.CRS, ms.SupportedCRS)
			}
		}
		if e, err := l.WGS84Box.Extent(); err == nil {
			info.Extent = e.Ptr()
		}
		out = append(out, info)
	}
	return out
}
