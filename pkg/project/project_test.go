package project

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/genres"
	"github.com/matzehuels/mapstack/pkg/genres/ogc"
	"github.com/matzehuels/mapstack/pkg/genres/tile"
	"github.com/matzehuels/mapstack/pkg/genres/vector"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
)

type nopFetcher struct{}

func (nopFetcher) Get(context.Context, string) ([]byte, error) { return nil, nil }

func registry() *genre.Registry { return genres.NewRegistry(nopFetcher{}) }

func TestLoad(t *testing.T) {
	for _, name := range []string{"city.toml", "city.yaml", "city.json"} {
		t.Run(name, func(t *testing.T) {
			p, err := Load(filepath.Join("testdata", name), registry())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if p.Projection != proj.EPSG3857 || p.Width != 800 || p.Height != 600 {
				t.Errorf("surface = %v %dx%d", p.Projection, p.Width, p.Height)
			}
			if p.ActiveBase != "topo" || p.ActiveOverlay != "roads" {
				t.Errorf("active = %q, %q", p.ActiveBase, p.ActiveOverlay)
			}

			if len(p.Bases) != 2 || len(p.Overlays) != 3 {
				t.Fatalf("got %d bases, %d overlays", len(p.Bases), len(p.Overlays))
			}
			osm, ok := p.Bases[0].(*tile.OSM)
			if !ok {
				t.Fatalf("bases[0] is %T", p.Bases[0])
			}
			if osm.URL != tile.DefaultOSMURL || !osm.Visible || osm.Opacity != 1 {
				t.Errorf("osm defaults lost: %+v", osm)
			}
			topo := p.Bases[1].(*tile.XYZ)
			if topo.MaxSourceZoom != 17 || topo.TileSize != 256 {
				t.Errorf("topo = %+v", topo)
			}

			if !layer.IsGroup(p.Overlays[0]) || p.Overlays[0].Common().Title != "Transport" {
				t.Errorf("overlays[0] = %+v", p.Overlays[0])
			}
			roads, ok := p.Overlays[1].(*ogc.WMS)
			if !ok {
				t.Fatalf("overlays[1] is %T", p.Overlays[1])
			}
			want := &ogc.WMS{
				Attrs: layer.Attrs{
					ID: "roads", Parent: "transport", Visible: true, Opacity: 0.5,
					Extent: layer.Extent{0, 0, 1000, 1000}.Ptr(),
				},
				Service: ogc.Service{ServiceURL: "https://maps.example.org/wms", LayerName: "roads"},
				Version: "1.3.0",
			}
			if diff := cmp.Diff(want, roads, cmp.AllowUnexported(ogc.WMS{})); diff != "" {
				t.Errorf("roads mismatch (-want +got):\n%s", diff)
			}
			parks := p.Overlays[2].(*vector.GeoJSON)
			if parks.Visible || parks.URL == "" {
				t.Errorf("parks = %+v", parks)
			}
		})
	}
}

func TestUndecodedTOML(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "city.toml"), registry())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"overlays.colour"}, p.Undecoded); diff != "" {
		t.Errorf("Undecoded mismatch (-want +got):\n%s", diff)
	}
}

func TestState(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "city.yaml"), registry())
	if err != nil {
		t.Fatal(err)
	}
	s, err := p.State()
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if s.ActiveBaseID() != "topo" || s.ActiveOverlayID() != "roads" {
		t.Errorf("active = %q, %q", s.ActiveBaseID(), s.ActiveOverlayID())
	}
	if diff := cmp.Diff([]layer.ID{"transport", "roads", "parks"}, s.Overlays().IDs()); diff != "" {
		t.Errorf("overlay order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]layer.ID{"roads"}, s.Children("transport")); diff != "" {
		t.Errorf("Children(transport) mismatch (-want +got):\n%s", diff)
	}

	p.ActiveBase = ""
	s, err = p.State()
	if err != nil {
		t.Fatal(err)
	}
	if s.ActiveBaseID() != "osm" {
		t.Errorf("default active base = %q, want the first", s.ActiveBaseID())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.Code
	}{
		{"syntax", `{"bases": [`, errors.ErrCodeInvalidFormat},
		{"no genre", `{"bases": [{"id": "a"}]}`, errors.ErrCodeConfiguration},
		{"unknown genre", `{"bases": [{"id": "a", "genre": "nope"}]}`, errors.ErrCodeConfiguration},
		{"no id", `{"bases": [{"genre": "osm-tile-raster"}]}`, errors.ErrCodeConfiguration},
		{"wrong type", `{"bases": [{"id": "a", "genre": "osm-tile-raster", "opacity": "full"}]}`, errors.ErrCodeInvalidFormat},
		{"projection", `{"projection": "EPSG:2056"}`, errors.ErrCodeInvalidInput},
		{"viewport", `{"viewport": [1]}`, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), FormatJSON, registry())
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	p, err := Decode([]byte(""), FormatTOML, registry())
	if err != nil {
		t.Fatal(err)
	}
	if p.Projection != proj.EPSG3857 || p.Width != DefaultWidth || p.Height != DefaultHeight {
		t.Errorf("defaults = %v %dx%d", p.Projection, p.Width, p.Height)
	}
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{"a.toml": FormatTOML, "a.YML": FormatYAML, "a.yaml": FormatYAML, "a.json": FormatJSON}
	for path, want := range tests {
		if got, err := FormatOf(path); err != nil || got != want {
			t.Errorf("FormatOf(%q) = %q, %v", path, got, err)
		}
	}
	if _, err := FormatOf("a.ini"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("FormatOf(a.ini) error = %v", err)
	}
}

func TestSpecDocument(t *testing.T) {
	reg := registry()
	spec := tile.NewXYZSpec("topo", "https://tiles.example.org/{z}/{x}/{y}.png")
	spec.Opacity = 0.25
	data, err := EncodeSpec(spec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeSpec(data, reg)
	if err != nil {
		t.Fatalf("DecodeSpec() error = %v", err)
	}
	if diff := cmp.Diff(layer.Spec(spec), got); diff != "" {
		t.Errorf("DecodeSpec(EncodeSpec()) mismatch (-want +got):\n%s", diff)
	}
}
