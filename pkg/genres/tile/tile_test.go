package tile

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
	"github.com/matzehuels/mapstack/pkg/surface"
)

func newReconciler(t *testing.T) (*genre.Reconciler, *surface.Memory) {
	t.Helper()
	reg := genre.NewRegistry()
	reg.MustRegister(NewOSM(), NewXYZ())
	s := surface.NewMemory(proj.EPSG3857, 800, 600)
	r := genre.NewReconciler(reg, s, log.New(io.Discard))
	t.Cleanup(r.Close)
	return r, s
}

func TestOSMDefaults(t *testing.T) {
	r, s := newReconciler(t)
	if _, err := r.Reconcile(context.Background(), NewOSMSpec("osm"), nil); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	nodes := s.Nodes().Nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	n := nodes[0]
	if n.Kind != surface.KindTile || n.Source.Type != "osm" {
		t.Errorf("node = %v, want osm tile", n)
	}
	if n.Source.URL != DefaultOSMURL {
		t.Errorf("URL = %q, want %q", n.Source.URL, DefaultOSMURL)
	}
	if n.Source.Params["max_zoom"] != "19" {
		t.Errorf("max_zoom = %q, want 19", n.Source.Params["max_zoom"])
	}
	if n.Source.Params["cross_origin"] != "anonymous" {
		t.Errorf("cross_origin = %q", n.Source.Params["cross_origin"])
	}
}

func TestOSMCosmeticEditPatches(t *testing.T) {
	r, s := newReconciler(t)
	ctx := context.Background()
	base := NewOSMSpec("osm")
	if _, err := r.Reconcile(ctx, base, nil); err != nil {
		t.Fatal(err)
	}
	before := s.Nodes().At(0)

	edited := *base
	edited.Opacity = 0.4
	res, err := r.Reconcile(ctx, &edited, nil)
	if err != nil {
		t.Fatal(err)
	}
	after := s.Nodes().At(0)
	if after != before {
		t.Error("cosmetic edit rebuilt the node")
	}
	if after.Opacity != 0.4 {
		t.Errorf("Opacity = %v, want 0.4", after.Opacity)
	}
	if res.Patched != 1 {
		t.Errorf("Patched = %d, want 1", res.Patched)
	}
}

func TestOSMSourceEditRecreates(t *testing.T) {
	r, s := newReconciler(t)
	ctx := context.Background()
	base := NewOSMSpec("osm")
	if _, err := r.Reconcile(ctx, base, nil); err != nil {
		t.Fatal(err)
	}
	before := s.Nodes().At(0)

	edited := *base
	edited.URL = "https://a.tile.example.org/{z}/{x}/{y}.png"
	if _, err := r.Reconcile(ctx, &edited, nil); err != nil {
		t.Fatal(err)
	}
	after := s.Nodes().At(0)
	if after == before {
		t.Error("URL edit kept the old node")
	}
	if after.Source.URL != edited.URL {
		t.Errorf("URL = %q, want %q", after.Source.URL, edited.URL)
	}
}

func TestXYZ(t *testing.T) {
	r, s := newReconciler(t)
	spec := NewXYZSpec("topo", "https://tiles.example.org/{z}/{x}/{y}.png")
	spec.MinSourceZoom = 2
	spec.Projection = "EPSG:900913"
	overlays := layer.NewOverlays(spec)
	if _, err := r.Reconcile(context.Background(), nil, overlays); err != nil {
		t.Fatal(err)
	}
	n := s.Nodes().At(0)
	if n.Source.Type != "xyz" || n.Source.Projection != "EPSG:900913" {
		t.Errorf("source = %+v", n.Source)
	}
	if n.Source.Params["tile_size"] != "256" || n.Source.Params["min_zoom"] != "2" {
		t.Errorf("params = %v", n.Source.Params)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		spec layer.Spec
		code errors.Code
	}{
		{"osm ok", NewOSMSpec("osm"), ""},
		{"xyz ok", NewXYZSpec("x", "https://t.example.org/{z}/{x}/{y}.png"), ""},
		{"missing url", NewXYZSpec("x", ""), errors.ErrCodeConfiguration},
		{"bad scheme", NewXYZSpec("x", "ftp://t.example.org/{z}/{x}/{y}"), errors.ErrCodeInvalidInput},
		{"no zoom placeholder", NewXYZSpec("x", "https://t.example.org/tile.png"), errors.ErrCodeInvalidInput},
		{"reserved id", NewOSMSpec(layer.RootID), errors.ErrCodeReservedID},
		{"bad tile size", func() layer.Spec {
			s := NewXYZSpec("x", "https://t.example.org/{z}/{x}/{y}.png")
			s.TileSize = 0
			return s
		}(), errors.ErrCodeInvalidInput},
		{"zoom order", func() layer.Spec {
			s := NewXYZSpec("x", "https://t.example.org/{z}/{x}/{y}.png")
			s.MinSourceZoom = 20
			return s
		}(), errors.ErrCodeInvalidInput},
		{"wrong type", layer.NewGroup("g", ""), errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h genre.Validator = NewOSM()
			if _, ok := tt.spec.(*XYZ); ok {
				h = NewXYZ()
			}
			err := h.Validate(tt.spec)
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Validate() error = %v, want code %s", err, tt.code)
			}
		})
	}
}
