package capab

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mapstack/pkg/layer"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestParseWMS130(t *testing.T) {
	doc, err := ParseWMS(readFixture(t, "wms130.xml"))
	if err != nil {
		t.Fatalf("ParseWMS() error: %v", err)
	}
	if doc.Version != "1.3.0" || !doc.VersionAtLeast("1.3.0") {
		t.Errorf("Version = %q", doc.Version)
	}
	if diff := cmp.Diff([]string{"image/png", "image/jpeg"}, doc.Capability.Request.GetMap.Formats); diff != "" {
		t.Errorf("formats mismatch (-want +got):\n%s", diff)
	}

	var names []string
	for _, l := range doc.NamedLayers() {
		names = append(names, l.Name)
	}
	if diff := cmp.Diff([]string{"roads", "lakes", "borders"}, names); diff != "" {
		t.Errorf("named layers mismatch (-want +got):\n%s", diff)
	}

	lakes, err := doc.Layer("lakes")
	if err != nil {
		t.Fatalf("Layer(lakes) error: %v", err)
	}
	if len(lakes.BoundingBoxes) != 2 || lakes.BoundingBoxes[0].Code() != "EPSG:3857" {
		t.Errorf("lakes bounding boxes = %+v", lakes.BoundingBoxes)
	}

	roads, _ := doc.Layer("roads")
	geo, ok := roads.Geographic()
	if !ok || geo != layer.NewExtent(5.9, 45.8, 10.5, 47.8) {
		t.Errorf("Geographic() = %v, %v", geo, ok)
	}

	var nf *ErrLayerNotFound
	if _, err := doc.Layer("nope"); !errors.As(err, &nf) || nf.Name != "nope" {
		t.Errorf("Layer(nope) error = %v", err)
	}
}

func TestParseWMS111(t *testing.T) {
	doc, err := ParseWMS(readFixture(t, "wms111.xml"))
	if err != nil {
		t.Fatalf("ParseWMS() error: %v", err)
	}
	if doc.VersionAtLeast("1.3.0") {
		t.Error("1.1.1 should be older than 1.3.0")
	}
	l, err := doc.Layer("parcels")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"EPSG:4326", "EPSG:3857"}, l.CRSList()); diff != "" {
		t.Errorf("CRSList mismatch (-want +got):\n%s", diff)
	}
	if l.BoundingBoxes[0].Code() != "EPSG:4326" {
		t.Errorf("SRS attribute not read: %+v", l.BoundingBoxes[0])
	}
	if geo, ok := l.Geographic(); !ok || geo.MinX() != 5.9 {
		t.Errorf("LatLonBoundingBox = %v, %v", geo, ok)
	}
}

func TestParseWFS(t *testing.T) {
	doc, err := ParseWFS(readFixture(t, "wfs200.xml"))
	if err != nil {
		t.Fatalf("ParseWFS() error: %v", err)
	}
	ft, err := doc.FeatureType("roads")
	if err != nil {
		t.Fatalf("unprefixed lookup failed: %v", err)
	}
	if ft.Name != "topp:roads" || ft.Default() != "urn:ogc:def:crs:EPSG::4326" {
		t.Errorf("feature type = %+v", ft)
	}
	if diff := cmp.Diff([]string{"application/gml+xml; version=3.2", "application/json"}, doc.OutputFormats(ft)); diff != "" {
		t.Errorf("output formats mismatch (-want +got):\n%s", diff)
	}
	e, err := ft.WGS84Box.Extent()
	if err != nil || e != layer.NewExtent(5.9, 45.8, 10.5, 47.8) {
		t.Errorf("WGS84 box = %v, %v", e, err)
	}

	old, err := ParseWFS(readFixture(t, "wfs110.xml"))
	if err != nil {
		t.Fatalf("ParseWFS(1.1.0) error: %v", err)
	}
	rivers, err := old.FeatureType("rivers")
	if err != nil {
		t.Fatal(err)
	}
	if rivers.Default() != "EPSG:4326" {
		t.Errorf("DefaultSRS = %q", rivers.Default())
	}
	if diff := cmp.Diff([]string{"GeoJSON"}, old.OutputFormats(rivers)); diff != "" {
		t.Errorf("per-type formats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"text/xml; subtype=gml/3.1.1"}, old.OutputFormats(nil)); diff != "" {
		t.Errorf("operation formats mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWMTS(t *testing.T) {
	doc, err := ParseWMTS(readFixture(t, "wmts.xml"))
	if err != nil {
		t.Fatalf("ParseWMTS() error: %v", err)
	}
	l, err := doc.Layer("ortho")
	if err != nil {
		t.Fatal(err)
	}
	if l.Title != "Orthophoto" || l.DefaultStyle() != "default" {
		t.Errorf("layer = %+v", l)
	}
	if diff := cmp.Diff([]string{"swiss", "google"}, l.MatrixSets); diff != "" {
		t.Errorf("matrix sets mismatch (-want +got):\n%s", diff)
	}
	tmpl, format := l.TileTemplate("")
	if format != "image/jpeg" || tmpl == "" {
		t.Errorf("TileTemplate() = %q, %q", tmpl, format)
	}
	if ms, ok := doc.MatrixSet("google"); !ok || ms.SupportedCRS != "urn:ogc:def:crs:EPSG::3857" {
		t.Errorf("MatrixSet(google) = %+v, %v", ms, ok)
	}
	if got := doc.GetTileURL(); got != "https://tiles.example.org/wmts?" {
		t.Errorf("GetTileURL() = %q", got)
	}

	names, _ := doc.Layer("names")
	if tmpl, _ := names.TileTemplate(""); tmpl != "" {
		t.Error("layer without ResourceURL should have no template")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		service string
		file    string
		want    []string
	}{
		{"wms", "wms130.xml", []string{"roads", "lakes", "borders"}},
		{"WFS", "wfs200.xml", []string{"topp:roads"}},
		{"wmts", "wmts.xml", []string{"ortho", "names"}},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			doc, err := Parse(tt.service, readFixture(t, tt.file))
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, l := range doc.LayerInfos() {
				got = append(got, l.Name)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("layers mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := Parse("csw", nil); err == nil {
		t.Error("unknown service should fail")
	}
	if _, err := ParseWMS([]byte("<not xml")); err == nil {
		t.Error("broken document should fail")
	}
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		v, min string
		want   bool
	}{
		{"1.3.0", "1.3.0", true},
		{"1.1.1", "1.3.0", false},
		{"2.0", "1.3.0", true},
		{"1.3", "1.3.0", true},
		{"", "1.3.0", false},
	}
	for _, tt := range tests {
		if got := versionAtLeast(tt.v, tt.min); got != tt.want {
			t.Errorf("versionAtLeast(%q, %q) = %v", tt.v, tt.min, got)
		}
	}
}
