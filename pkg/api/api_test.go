package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/genres/tile"
	"github.com/matzehuels/mapstack/pkg/genres/vector"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/proj"
	"github.com/matzehuels/mapstack/pkg/surface"
	"github.com/matzehuels/mapstack/pkg/tree"
)

func newServer(t *testing.T) (*httptest.Server, *surface.Memory) {
	t.Helper()
	reg := genre.NewRegistry()
	reg.MustRegister(tile.NewOSM(), tile.NewXYZ(), vector.New())

	st := tree.New()
	if err := st.AddBase(tile.NewOSMSpec("osm"), true); err != nil {
		t.Fatal(err)
	}
	topo := tile.NewXYZSpec("topo", "https://tiles.example.org/topo/{z}/{x}/{y}.png")
	if err := st.AddBase(topo, false); err != nil {
		t.Fatal(err)
	}
	if err := st.AddOverlay(layer.NewGroup("g", "Group"), false); err != nil {
		t.Fatal(err)
	}

	s := surface.NewMemory(proj.EPSG3857, 512, 512)
	rec := genre.NewReconciler(reg, s, log.New(io.Discard))
	t.Cleanup(rec.Close)
	ctl := tree.NewControllerWithState(st, rec, log.New(io.Discard))

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "# metrics\n")
	})
	srv := httptest.NewServer(New(ctl, reg, Options{Logger: log.New(io.Discard), Metrics: metrics}).Handler())
	t.Cleanup(srv.Close)
	return srv, s
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func nodeIDs(t *testing.T, srv *httptest.Server) []layer.ID {
	t.Helper()
	code, data := do(t, http.MethodGet, srv.URL+"/nodes", "")
	if code != http.StatusOK {
		t.Fatalf("GET /nodes = %d: %s", code, data)
	}
	var views []struct {
		ID layer.ID `json:"id"`
	}
	if err := json.Unmarshal(data, &views); err != nil {
		t.Fatal(err)
	}
	var out []layer.ID
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

const roadsDoc = `{"genre": "xyz-tile-raster", "id": "roads", "parent": "g",
	"url": "https://tiles.example.org/roads/{z}/{x}/{y}.png", "opacity": 0.5}`

const parksDoc = `{"genre": "geojson-vector", "id": "parks",
	"data": "{\"type\": \"FeatureCollection\", \"features\": []}"}`

func TestPutLayer(t *testing.T) {
	srv, s := newServer(t)

	code, data := do(t, http.MethodPut, srv.URL+"/layers/roads", roadsDoc)
	if code != http.StatusCreated {
		t.Fatalf("PUT new layer = %d: %s", code, data)
	}
	code, data = do(t, http.MethodPut, srv.URL+"/layers/parks", parksDoc)
	if code != http.StatusCreated {
		t.Fatalf("PUT second layer = %d: %s", code, data)
	}

	// Overlays declared first end up on top.
	if diff := cmp.Diff([]layer.ID{"roads", "parks", "osm"}, nodeIDs(t, srv)); diff != "" {
		t.Errorf("GET /nodes (-want +got):\n%s", diff)
	}

	replaced := strings.Replace(roadsDoc, `"opacity": 0.5`, `"opacity": 0.25`, 1)
	code, data = do(t, http.MethodPut, srv.URL+"/layers/roads", replaced)
	if code != http.StatusOK {
		t.Fatalf("PUT existing layer = %d: %s", code, data)
	}
	var res ResultView
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Rebuilt || res.Patched != 1 || res.Layer != "roads" {
		t.Errorf("opacity edit = %s, want one patch in place", data)
	}
	if op := s.Nodes().At(s.Nodes().Len() - 1).Opacity; op != 0.25 {
		t.Errorf("top node opacity = %v, want 0.25", op)
	}
}

func TestPutLayerErrors(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name string
		path string
		body string
		want int
		code errors.Code
	}{
		{"id mismatch", "/layers/other", roadsDoc, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown genre", "/layers/x", `{"genre": "nope", "id": "x"}`, http.StatusBadRequest, errors.ErrCodeConfiguration},
		{"bad kind", "/layers/roads?kind=floor", roadsDoc, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"missing parent", "/layers/roads", strings.Replace(roadsDoc, `"g"`, `"nope"`, 1), http.StatusNotFound, errors.ErrCodeLayerNotFound},
		{"group as base", "/layers/g2?kind=base", `{"genre": "` + string(layer.GroupGenre) + `", "id": "g2"}`, http.StatusBadRequest, errors.ErrCodeConfiguration},
		{"too large", "/layers/big", `{"genre": "geojson-vector", "id": "big", "data": "` + strings.Repeat(" ", maxBody) + `"}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data := do(t, http.MethodPut, srv.URL+tt.path, tt.body)
			if code != tt.want {
				t.Fatalf("status = %d, want %d: %s", code, tt.want, data)
			}
			var body errorBody
			if err := json.Unmarshal(data, &body); err != nil {
				t.Fatal(err)
			}
			if body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
		})
	}

	// Failed edits leave the surface as it was.
	if diff := cmp.Diff([]layer.ID{"osm"}, nodeIDs(t, srv)); diff != "" {
		t.Errorf("GET /nodes after failures (-want +got):\n%s", diff)
	}
}

func TestPutLayerConcurrent(t *testing.T) {
	srv, _ := newServer(t)

	const n = 8
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPut, srv.URL+"/layers/roads", strings.NewReader(roadsDoc))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	got := map[int]int{}
	for code := range codes {
		got[code]++
	}
	want := map[int]int{http.StatusCreated: 1, http.StatusOK: n - 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("status counts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]layer.ID{"roads", "osm"}, nodeIDs(t, srv)); diff != "" {
		t.Errorf("GET /nodes (-want +got):\n%s", diff)
	}
}

func TestActivateBase(t *testing.T) {
	srv, _ := newServer(t)

	code, data := do(t, http.MethodPost, srv.URL+"/bases/topo/activate", "")
	if code != http.StatusOK {
		t.Fatalf("activate = %d: %s", code, data)
	}
	if diff := cmp.Diff([]layer.ID{"topo"}, nodeIDs(t, srv)); diff != "" {
		t.Errorf("GET /nodes (-want +got):\n%s", diff)
	}

	if code, _ := do(t, http.MethodPost, srv.URL+"/bases/nope/activate", ""); code != http.StatusNotFound {
		t.Errorf("activate unknown base = %d, want 404", code)
	}
}

func TestDeleteLayer(t *testing.T) {
	srv, _ := newServer(t)
	do(t, http.MethodPut, srv.URL+"/layers/roads", roadsDoc)
	do(t, http.MethodPut, srv.URL+"/layers/parks", parksDoc)

	// Removing the group takes its child along.
	code, data := do(t, http.MethodDelete, srv.URL+"/layers/g", "")
	if code != http.StatusOK {
		t.Fatalf("DELETE = %d: %s", code, data)
	}
	if diff := cmp.Diff([]layer.ID{"parks", "osm"}, nodeIDs(t, srv)); diff != "" {
		t.Errorf("GET /nodes (-want +got):\n%s", diff)
	}

	if code, _ := do(t, http.MethodDelete, srv.URL+"/layers/g", ""); code != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", code)
	}
}

func TestMoveOverlay(t *testing.T) {
	srv, _ := newServer(t)
	do(t, http.MethodPut, srv.URL+"/layers/parks", parksDoc)

	// parks sits after g at the root; moving it to the front puts it on top.
	code, data := do(t, http.MethodPost, srv.URL+"/overlays/parks/move?index=0", "")
	if code != http.StatusOK {
		t.Fatalf("move = %d: %s", code, data)
	}
	code, data = do(t, http.MethodGet, srv.URL+"/layers", "")
	if code != http.StatusOK {
		t.Fatalf("GET /layers = %d", code)
	}
	var view LayersView
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, o := range view.Overlays {
		var spec struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(o.Spec, &spec); err != nil {
			t.Fatal(err)
		}
		order = append(order, spec.ID)
	}
	if diff := cmp.Diff([]string{"parks", "g"}, order); diff != "" {
		t.Errorf("overlay order (-want +got):\n%s", diff)
	}

	if code, _ := do(t, http.MethodPost, srv.URL+"/overlays/g/move?parent=g", ""); code != http.StatusBadRequest {
		t.Errorf("move below itself = %d, want 400", code)
	}
	if code, _ := do(t, http.MethodPost, srv.URL+"/overlays/parks/move?index=x", ""); code != http.StatusBadRequest {
		t.Errorf("bad index = %d, want 400", code)
	}
}

func TestLayers(t *testing.T) {
	srv, _ := newServer(t)
	do(t, http.MethodPut, srv.URL+"/layers/roads", roadsDoc)

	code, data := do(t, http.MethodGet, srv.URL+"/layers", "")
	if code != http.StatusOK {
		t.Fatalf("GET /layers = %d", code)
	}
	var view LayersView
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatal(err)
	}
	if view.ActiveBase != "osm" || len(view.Bases) != 2 || !view.Bases[0].Active {
		t.Errorf("bases = %+v, active %q", view.Bases, view.ActiveBase)
	}
	if len(view.Overlays) != 2 {
		t.Fatalf("overlays = %d, want 2", len(view.Overlays))
	}
	if g := view.Overlays[0]; g.Kind != tree.KindGroup || g.Parent != "" {
		t.Errorf("group view = %+v", g)
	}
	if r := view.Overlays[1]; r.Kind != tree.KindOverlay || r.Parent != "g" {
		t.Errorf("roads view = %+v", r)
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := newServer(t)
	code, data := do(t, http.MethodGet, srv.URL+"/metrics", "")
	if code != http.StatusOK || !strings.Contains(string(data), "# metrics") {
		t.Errorf("GET /metrics = %d %q", code, data)
	}
}
