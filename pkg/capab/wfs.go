package capab

import "strings"

// WFS is a WFS 1.1.0 or 2.0.0 capabilities document.
type WFS struct {
	Version    string `xml:"version,attr"`
	Operations []struct {
		Name       string `xml:"name,attr"`
		Parameters []struct {
			Name          string   `xml:"name,attr"`
			Values        []string `xml:"Value"`
			AllowedValues []string `xml:"AllowedValues>Value"`
		} `xml:"Parameter"`
	} `xml:"OperationsMetadata>Operation"`
	FeatureTypes []FeatureType `xml:"FeatureTypeList>FeatureType"`
}

// FeatureType is one feature type of a WFS.
type FeatureType struct {
	Name          string   `xml:"Name"`
	Title         string   `xml:"Title"`
	DefaultCRS    string   `xml:"DefaultCRS"` // 2.0.0
	DefaultSRS    string   `xml:"DefaultSRS"` // 1.1.0
	OtherCRS      []string `xml:"OtherCRS"`
	OtherSRS      []string `xml:"OtherSRS"`
	OutputFormats []string `xml:"OutputFormats>Format"`
	WGS84Box      *Corners `xml:"WGS84BoundingBox"`
}

// ParseWFS decodes a WFS capabilities document.
func ParseWFS(data []byte) (*WFS, error) {
	var doc WFS
	if err := decode(data, &doc, ServiceWFS); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FeatureType finds a feature type by name. A name without prefix also
// matches a prefixed type name ("roads" matches "topp:roads").
func (w *WFS) FeatureType(name string) (*FeatureType, error) {
	for i := range w.FeatureTypes {
		if w.FeatureTypes[i].Name == name {
			return &w.FeatureTypes[i], nil
		}
	}
	if !strings.Contains(name, ":") {
		for i := range w.FeatureTypes {
			if _, local, ok := strings.Cut(w.FeatureTypes[i].Name, ":"); ok && local == name {
				return &w.FeatureTypes[i], nil
			}
		}
	}
	return nil, &ErrLayerNotFound{Service: ServiceWFS, Name: name}
}

// Default returns the default coordinate system of the feature type.
func (f *FeatureType) Default() string {
	if f.DefaultCRS != "" {
		return f.DefaultCRS
	}
	return f.DefaultSRS
}

// CRSList returns the default coordinate system followed by the others.
func (f *FeatureType) CRSList() []string {
	var out []string
	if d := f.Default(); d != "" {
		out = append(out, d)
	}
	out = append(out, f.OtherCRS...)
	return append(out, f.OtherSRS...)
}

// OutputFormats returns the formats GetFeature offers, per feature type if
// declared there, otherwise from the operation metadata.
func (w *WFS) OutputFormats(f *FeatureType) []string {
	if f != nil && len(f.OutputFormats) > 0 {
		return f.OutputFormats
	}
	for _, op := range w.Operations {
		if op.Name != "GetFeature" {
			continue
		}
		for _, p := range op.Parameters {
			if strings.EqualFold(p.Name, "outputFormat") {
				return append(append([]string(nil), p.AllowedValues...), p.Values...)
			}
		}
	}
	return nil
}

func (w *WFS) Service() string    { return ServiceWFS }
func (w *WFS) DocVersion() string { return w.Version }

func (w *WFS) LayerInfos() []LayerInfo {
	out := make([]LayerInfo, 0, len(w.FeatureTypes))
	for i := range w.FeatureTypes {
		f := &w.FeatureTypes[i]
		info := LayerInfo{Name: f.Name, Title: f.Title, CRS: f.CRSList()}
		if e, err := f.WGS84Box.Extent(); err == nil {
			info.Extent = e.Ptr()
		}
		out = append(out, info)
	}
	return out
}
