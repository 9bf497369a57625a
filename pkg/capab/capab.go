package capab

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/mapstack/pkg/layer"
)

// Service names as sent in the SERVICE request parameter.
const (
	ServiceWMS  = "WMS"
	ServiceWFS  = "WFS"
	ServiceWMTS = "WMTS"
)

// LayerInfo is the service-neutral description of one named layer.
type LayerInfo struct {
	Name   string
	Title  string
	CRS    []string
	Extent *layer.Extent // Geographic (lon/lat) bounds, if advertised
}

// Document is a parsed capabilities document.
type Document interface {
	Service() string
	DocVersion() string
	LayerInfos() []LayerInfo
}

// Parse decodes data as the capabilities of service, which is matched
// case-insensitively.
func Parse(service string, data []byte) (Document, error) {
	switch strings.ToUpper(service) {
	case ServiceWMS:
		return ParseWMS(data)
	case ServiceWFS:
		return ParseWFS(data)
	case ServiceWMTS:
		return ParseWMTS(data)
	}
	return nil, fmt.Errorf("unknown service %q", service)
}

// ErrLayerNotFound is returned by layer lookups for a name the document
// does not offer.
type ErrLayerNotFound struct {
	Service string
	Name    string
}

func (e *ErrLayerNotFound) Error() string {
	return fmt.Sprintf("%s capabilities have no layer %q", e.Service, e.Name)
}

func decode(data []byte, v any, service string) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	// Capabilities are occasionally served as Latin-1; the characters that
	// matter here are all ASCII.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse %s capabilities: %w", service, err)
	}
	return nil
}

// Corners is an OWS bounding box given by its lower and upper corner, each
// "x y" separated by whitespace.
type Corners struct {
	CRS   string `xml:"crs,attr"`
	Lower string `xml:"LowerCorner"`
	Upper string `xml:"UpperCorner"`
}

// Extent returns the rectangle in the axis order of the document.
func (c *Corners) Extent() (layer.Extent, error) {
	if c == nil {
		return layer.Extent{}, fmt.Errorf("no bounding box")
	}
	x1, y1, err := pair(c.Lower)
	if err != nil {
		return layer.Extent{}, err
	}
	x2, y2, err := pair(c.Upper)
	if err != nil {
		return layer.Extent{}, err
	}
	return layer.NewExtent(x1, y1, x2, y2), nil
}

func pair(s string) (float64, float64, error) {
	f := strings.Fields(s)
	if len(f) != 2 {
		return 0, 0, fmt.Errorf("corner %q is not two numbers", s)
	}
	x, err := strconv.ParseFloat(f[0], 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(f[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// versionAtLeast compares dotted version strings numerically.
func versionAtLeast(v, minimum string) bool {
	a, b := strings.Split(v, "."), strings.Split(minimum, ".")
	for i := 0; i < max(len(a), len(b)); i++ {
		var x, y int
		if i < len(a) {
			x, _ = strconv.Atoi(a[i])
		}
		if i < len(b) {
			y, _ = strconv.Atoi(b[i])
		}
		if x != y {
			return x > y
		}
	}
	return true
}
