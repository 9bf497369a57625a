package ogc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/mapstack/pkg/capab"
	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/fetch"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
	"github.com/matzehuels/mapstack/pkg/surface"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "capab", "testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

// ogcServer answers GetCapabilities with the fixture for the requested
// service and records the queries it saw.
type ogcServer struct {
	*httptest.Server
	mu      sync.Mutex
	queries []map[string]string
}

func newServer(t *testing.T, docs map[string]string) *ogcServer {
	t.Helper()
	bodies := make(map[string][]byte, len(docs))
	for service, name := range docs {
		bodies[service] = fixture(t, name)
	}
	s := &ogcServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k, v := range r.URL.Query() {
			q[strings.ToUpper(k)] = v[0]
		}
		s.mu.Lock()
		s.queries = append(s.queries, q)
		s.mu.Unlock()
		body, ok := bodies[q["SERVICE"]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *ogcServer) hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *ogcServer) last() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

func newClient() *fetch.Client {
	return fetch.NewClient(fetch.Options{Logger: log.New(io.Discard)})
}

type fixtureT struct {
	rec     *genre.Reconciler
	surface *surface.Memory
}

func setup(t *testing.T, p proj.Projection) *fixtureT {
	t.Helper()
	c := newClient()
	reg := genre.NewRegistry()
	reg.MustRegister(NewWMS(c), NewWMSTiled(c), NewWFS(c), NewWMTS(c))
	s := surface.NewMemory(p, 1024, 768)
	r := genre.NewReconciler(reg, s, log.New(io.Discard))
	t.Cleanup(r.Close)
	return &fixtureT{rec: r, surface: s}
}

func (f *fixtureT) reconcile(t *testing.T, specs ...layer.Spec) *genre.Result {
	t.Helper()
	res, err := f.rec.Reconcile(context.Background(), nil, layer.NewOverlays(specs...))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.rec.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return res
}

func (f *fixtureT) nodes() []*surface.Node { return f.surface.Nodes().Nodes() }

var approx = cmpopts.EquateApprox(0, 1e-6)

func mercator(t *testing.T, e layer.Extent) layer.Extent {
	t.Helper()
	out, err := proj.TransformExtent(e, proj.CRS84, proj.EPSG3857, extentStops)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestWMSExtent(t *testing.T) {
	wms130, err := capab.ParseWMS(fixture(t, "wms130.xml"))
	if err != nil {
		t.Fatal(err)
	}
	wms111, err := capab.ParseWMS(fixture(t, "wms111.xml"))
	if err != nil {
		t.Fatal(err)
	}
	swiss := layer.Extent{5.9, 45.8, 10.5, 47.8}

	tests := []struct {
		name  string
		doc   *capab.WMS
		layer string
		proj  proj.Projection
		want  layer.Extent
	}{
		{"first box reprojected with axis swap", wms130, "roads", proj.EPSG3857, mercator(t, swiss)},
		{"box in surface projection", wms130, "lakes", proj.EPSG3857, layer.Extent{656000, 5740000, 1170000, 6070000}},
		{"geographic box", wms130, "borders", proj.EPSG3857, mercator(t, layer.Extent{-10, -5, 10, 5})},
		{"matching box swapped", wms130, "roads", proj.EPSG4326, swiss},
		{"1.1.1 keeps axis order", wms111, "parcels", proj.EPSG4326, swiss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := tt.doc.Layer(tt.layer)
			if err != nil {
				t.Fatal(err)
			}
			got, err := WMSExtent(tt.doc, l, tt.proj)
			if err != nil {
				t.Fatalf("WMSExtent() error = %v", err)
			}
			if got == nil {
				t.Fatal("WMSExtent() = nil")
			}
			if diff := cmp.Diff(tt.want, *got, approx); diff != "" {
				t.Errorf("WMSExtent() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCapabilitiesURL(t *testing.T) {
	got := CapabilitiesURL("https://maps.example.org/ows?map=a&service=WFS", "WMS", map[string]string{"LAYERS": "roads"})
	if !strings.Contains(got, "map=a") {
		t.Errorf("existing query lost: %s", got)
	}
	for _, want := range []string{"SERVICE=WMS", "REQUEST=GetCapabilities", "LAYERS=roads"} {
		if !strings.Contains(got, want) {
			t.Errorf("%s missing %s", got, want)
		}
	}
	if strings.Contains(got, "service=WFS") {
		t.Errorf("stale service parameter kept: %s", got)
	}
}

func TestWMSCreate(t *testing.T) {
	srv := newServer(t, map[string]string{"WMS": "wms130.xml"})
	f := setup(t, proj.EPSG3857)

	res := f.reconcile(t, NewWMSSpec("roads", srv.URL, "roads"))
	if res.Pending != 1 {
		t.Errorf("Pending = %d, want 1", res.Pending)
	}
	nodes := f.nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	n := nodes[0]
	if n.Kind != surface.KindImage || n.Source.Type != "wms" {
		t.Errorf("node = %v", n)
	}
	if n.Source.Params["LAYERS"] != "roads" || n.Source.Format != "image/png" || n.Source.Version != "1.3.0" {
		t.Errorf("source = %+v", n.Source)
	}
	if n.Title != "Roads" {
		t.Errorf("Title = %q, want title from capabilities", n.Title)
	}
	if n.Extent == nil {
		t.Fatal("Extent = nil")
	}
	if n.ID() != "roads" {
		t.Errorf("ID() = %q", n.ID())
	}

	q := srv.last()
	if q["SERVICE"] != "WMS" || q["REQUEST"] != "GetCapabilities" || q["LAYERS"] != "roads" {
		t.Errorf("request query = %v", q)
	}
}

func TestWMSTiled(t *testing.T) {
	srv := newServer(t, map[string]string{"WMS": "wms130.xml"})
	f := setup(t, proj.EPSG3857)

	f.reconcile(t, NewWMSTiledSpec("lakes", srv.URL, "lakes"))
	n := f.nodes()[0]
	if n.Kind != surface.KindTile || n.Source.Params["TILED"] != "true" {
		t.Errorf("node = %v params %v", n, n.Source.Params)
	}
}

func TestWMSExplicitExtent(t *testing.T) {
	srv := newServer(t, map[string]string{"WMS": "wms130.xml"})
	f := setup(t, proj.EPSG3857)

	spec := NewWMSSpec("roads", srv.URL, "roads")
	spec.Extent = layer.Extent{0, 0, 10, 10}.Ptr()
	f.reconcile(t, spec)
	if got := f.nodes()[0].Extent; got == nil || *got != (layer.Extent{0, 0, 10, 10}) {
		t.Errorf("Extent = %v, want the spec extent", got)
	}
}

func TestWMSEdits(t *testing.T) {
	srv := newServer(t, map[string]string{"WMS": "wms130.xml"})
	f := setup(t, proj.EPSG3857)

	spec := NewWMSSpec("roads", srv.URL, "roads")
	f.reconcile(t, spec)
	first := f.nodes()[0]
	hits := srv.hits()

	faded := *spec
	faded.Opacity = 0.5
	res := f.reconcile(t, &faded)
	if res.Patched != 1 || srv.hits() != hits {
		t.Errorf("opacity edit: Patched = %d, fetches %d -> %d", res.Patched, hits, srv.hits())
	}
	if n := f.nodes()[0]; n != first || n.Opacity != 0.5 {
		t.Errorf("opacity edit did not patch in place")
	}

	jpeg := faded
	jpeg.Format = "image/jpeg"
	f.reconcile(t, &jpeg)
	if srv.hits() != hits+1 {
		t.Errorf("format edit fetched %d times, want 1", srv.hits()-hits)
	}
	nodes := f.nodes()
	if len(nodes) != 1 || nodes[0] == first || nodes[0].Source.Format != "image/jpeg" {
		t.Errorf("format edit did not rebuild: %v", nodes)
	}
}

func TestWMSFailures(t *testing.T) {
	srv := newServer(t, map[string]string{"WMS": "wms130.xml"})
	h := NewWMS(newClient())
	ctx := context.Background()

	_, err := h.build(ctx, NewWMSSpec("x", srv.URL, "missing"), proj.EPSG3857)
	if !errors.Is(err, errors.ErrCodeLayerNotFound) {
		t.Errorf("missing layer error = %v, want %s", err, errors.ErrCodeLayerNotFound)
	}

	wfsOnly := newServer(t, map[string]string{"WFS": "wfs200.xml"})
	_, err = h.build(ctx, NewWMSSpec("x", wfsOnly.URL, "roads"), proj.EPSG3857)
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("404 error = %v, want %s", err, errors.ErrCodeNotFound)
	}

	// A failed job leaves no node behind.
	f := setup(t, proj.EPSG3857)
	f.reconcile(t, NewWMSSpec("x", srv.URL, "missing"))
	if n := len(f.nodes()); n != 0 {
		t.Errorf("got %d nodes after failed creation, want 0", n)
	}
}

func TestWFSCreate(t *testing.T) {
	srv := newServer(t, map[string]string{"WFS": "wfs200.xml"})
	f := setup(t, proj.EPSG3857)

	f.reconcile(t, NewWFSSpec("roads", srv.URL, "roads"))
	nodes := f.nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	n := nodes[0]
	if n.Kind != surface.KindVector || n.Source.Params["TYPENAME"] != "topp:roads" {
		t.Errorf("node = %v params %v", n, n.Source.Params)
	}
	if n.Source.Format != "application/json" {
		t.Errorf("Format = %q, want the JSON format", n.Source.Format)
	}
	want := mercator(t, layer.Extent{5.9, 45.8, 10.5, 47.8})
	if n.Extent == nil {
		t.Fatal("Extent = nil")
	}
	if diff := cmp.Diff(want, *n.Extent, approx); diff != "" {
		t.Errorf("Extent mismatch (-want +got):\n%s", diff)
	}
	if q := srv.last(); q["SERVICE"] != "WFS" {
		t.Errorf("request query = %v", q)
	}
}

func TestWMTSCreate(t *testing.T) {
	srv := newServer(t, map[string]string{"WMTS": "wmts.xml"})

	tests := []struct {
		name     string
		spec     *WMTS
		wantURL  string
		wantProj string
		params   map[string]string
	}{
		{
			name:     "rest template in surface projection",
			spec:     NewWMTSSpec("ortho", srv.URL, "ortho"),
			wantURL:  "https://tiles.example.org/ortho/default/google/{TileMatrix}/{TileRow}/{TileCol}.jpeg",
			wantProj: "EPSG:3857",
			params:   map[string]string{"encoding": "REST"},
		},
		{
			name: "explicit matrix set",
			spec: func() *WMTS {
				s := NewWMTSSpec("ortho", srv.URL, "ortho")
				s.MatrixSet = "swiss"
				return s
			}(),
			wantURL:  "https://tiles.example.org/ortho/default/swiss/{TileMatrix}/{TileRow}/{TileCol}.jpeg",
			wantProj: "EPSG:2056",
			params:   map[string]string{"encoding": "REST"},
		},
		{
			name:     "kvp",
			spec:     NewWMTSSpec("names", srv.URL, "names"),
			wantURL:  "https://tiles.example.org/wmts?",
			wantProj: "EPSG:3857",
			params:   map[string]string{"encoding": "KVP", "LAYER": "names", "STYLE": "", "TILEMATRIXSET": "google"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, proj.EPSG3857)
			f.reconcile(t, tt.spec)
			nodes := f.nodes()
			if len(nodes) != 1 {
				t.Fatalf("got %d nodes, want 1", len(nodes))
			}
			src := nodes[0].Source
			if src.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", src.URL, tt.wantURL)
			}
			if src.Projection != tt.wantProj {
				t.Errorf("Projection = %q, want %q", src.Projection, tt.wantProj)
			}
			if diff := cmp.Diff(tt.params, src.Params); diff != "" {
				t.Errorf("Params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatrixSet(t *testing.T) {
	doc, err := capab.ParseWMTS(fixture(t, "wmts.xml"))
	if err != nil {
		t.Fatal(err)
	}
	l, err := doc.Layer("ortho")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := MatrixSet(doc, l, "nope", proj.EPSG3857); !errors.Is(err, errors.ErrCodeLayerNotFound) {
		t.Errorf("unknown matrix set error = %v", err)
	}
	ms, err := MatrixSet(doc, l, "", proj.EPSG4326)
	if err != nil {
		t.Fatal(err)
	}
	if ms.Identifier != "swiss" {
		t.Errorf("fallback matrix set = %q, want the first linked", ms.Identifier)
	}
}

func TestValidate(t *testing.T) {
	c := newClient()
	badServer := NewWMSSpec("w", "https://maps.example.org/wms", "roads")
	badServer.ServerType = "arcgis"

	tests := []struct {
		name string
		v    genre.Validator
		spec layer.Spec
		code errors.Code
	}{
		{"wms ok", NewWMS(c), NewWMSSpec("w", "https://maps.example.org/wms", "roads"), ""},
		{"wms no url", NewWMS(c), NewWMSSpec("w", "", "roads"), errors.ErrCodeConfiguration},
		{"wms no layer", NewWMS(c), NewWMSSpec("w", "https://maps.example.org/wms", ""), errors.ErrCodeConfiguration},
		{"wms server type", NewWMS(c), badServer, errors.ErrCodeConfiguration},
		{"wfs bad url", NewWFS(c), NewWFSSpec("f", "file:///tmp/x", "roads"), errors.ErrCodeInvalidInput},
		{"wmts ok", NewWMTS(c), NewWMTSSpec("t", "https://tiles.example.org/wmts", "ortho"), ""},
		{"wrong spec", NewWMTS(c), NewWFSSpec("f", "https://x.example.org", "roads"), errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate(tt.spec)
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Validate() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestNewSpecGenre(t *testing.T) {
	c := newClient()
	for _, h := range []interface {
		genre.Handler
		genre.Factory
	}{NewWMS(c), NewWMSTiled(c), NewWFS(c), NewWMTS(c)} {
		if got := h.NewSpec().Genre(); got != h.ID() {
			t.Errorf("%s: NewSpec().Genre() = %s", h.ID(), got)
		}
	}
}
