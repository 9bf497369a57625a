// Package proj is a minimal projection catalogue for layer extents.
//
// It knows geographic coordinates (EPSG:4326 and CRS:84) and spherical web
// mercator (EPSG:3857 and its historic aliases), which is what capability
// documents of tile and map services overwhelmingly declare. Coordinates are
// always handled as (x, y) = (east, north) internally; [Projection.Axis]
// records the order a document uses so callers can swap before transforming.
package proj

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/matzehuels/mapstack/pkg/layer"
)

// Axis orientations as used in CRS definitions.
const (
	AxisEastNorth = "enu"
	AxisNorthEast = "neu"
)

// Projection describes a coordinate reference system.
type Projection struct {
	Code  string // Canonical code, e.g. "EPSG:3857"
	Axis  string // AxisEastNorth or AxisNorthEast
	Units string // "degrees" or "m"
}

// NorthEast reports whether documents list coordinates north first.
func (p Projection) NorthEast() bool { return strings.HasPrefix(p.Axis, "ne") }

// Geographic reports whether the projection is in degrees.
func (p Projection) Geographic() bool { return p.Units == "degrees" }

func (p Projection) String() string { return p.Code }

// Well known projections.
var (
	EPSG4326 = Projection{Code: "EPSG:4326", Axis: AxisNorthEast, Units: "degrees"}
	CRS84    = Projection{Code: "CRS:84", Axis: AxisEastNorth, Units: "degrees"}
	EPSG3857 = Projection{Code: "EPSG:3857", Axis: AxisEastNorth, Units: "m"}
)

var known = map[string]Projection{
	"EPSG:4326":   EPSG4326,
	"CRS:84":      CRS84,
	"EPSG:3857":   EPSG3857,
	"EPSG:900913": EPSG3857,
	"EPSG:102100": EPSG3857,
	"EPSG:102113": EPSG3857,
	"EPSG:3785":   EPSG3857,
}

var epsgRE = regexp.MustCompile(`EPSG[:/A-Z.#]*:*(?:[0-9.]*:)*(\d+)$`)

// Normalize maps URN, URL and short forms of a CRS identifier to the short
// "AUTHORITY:CODE" form.
//
//	Normalize("urn:ogc:def:crs:EPSG::3857")                    // "EPSG:3857"
//	Normalize("http://www.opengis.net/gml/srs/epsg.xml#4326")  // "EPSG:4326"
//	Normalize("urn:ogc:def:crs:OGC:1.3:CRS84")                 // "CRS:84"
func Normalize(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case c == "":
		return ""
	case strings.HasSuffix(c, "CRS84"), c == "CRS:84":
		return "CRS:84"
	case strings.Contains(c, "EPSG.XML#"):
		return "EPSG:" + c[strings.LastIndex(c, "#")+1:]
	}
	if m := epsgRE.FindStringSubmatch(c); m != nil {
		return "EPSG:" + m[1]
	}
	return c
}

// Get looks up a projection by any spelling of its code.
func Get(code string) (Projection, bool) {
	p, ok := known[Normalize(code)]
	return p, ok
}

// Equivalent reports whether two codes name the same projection.
func Equivalent(a, b string) bool {
	pa, oka := Get(a)
	pb, okb := Get(b)
	if oka && okb {
		return pa.Code == pb.Code
	}
	return Normalize(a) == Normalize(b)
}

// TransformFunc maps one (x, y) coordinate.
type TransformFunc func(x, y float64) (float64, float64)

const (
	earthRadius = 6378137.0
	maxLat      = 85.0511287798066
)

func toMercator(lon, lat float64) (float64, float64) {
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	x := earthRadius * lon * math.Pi / 180
	y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

func fromMercator(x, y float64) (float64, float64) {
	lon := x / earthRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

func identity(x, y float64) (float64, float64) { return x, y }

// Transform returns the point transform between two projections.
func Transform(from, to Projection) (TransformFunc, error) {
	switch {
	case from.Code == to.Code, from.Geographic() && to.Geographic():
		return identity, nil
	case from.Geographic() && to.Code == EPSG3857.Code:
		return toMercator, nil
	case from.Code == EPSG3857.Code && to.Geographic():
		return fromMercator, nil
	}
	return nil, fmt.Errorf("no transform from %s to %s", from.Code, to.Code)
}

// TransformExtent reprojects e by sampling stops points along each edge and
// taking the bounding box of the results. stops below 1 means corners only.
func TransformExtent(e layer.Extent, from, to Projection, stops int) (layer.Extent, error) {
	fn, err := Transform(from, to)
	if err != nil {
		return layer.Extent{}, err
	}
	stops = max(stops, 1)
	out := layer.EmptyExtent()
	dx := e.Width() / float64(stops)
	dy := e.Height() / float64(stops)
	for i := 0; i < stops; i++ {
		for _, p := range [][2]float64{
			{e.MinX() + dx*float64(i), e.MinY()}, // bottom edge, left to right
			{e.MaxX(), e.MinY() + dy*float64(i)}, // right edge, bottom to top
			{e.MaxX() - dx*float64(i), e.MaxY()}, // top edge, right to left
			{e.MinX(), e.MaxY() - dy*float64(i)}, // left edge, top to bottom
		} {
			x, y := fn(p[0], p[1])
			out = out.Extend(x, y)
		}
	}
	return out, nil
}
