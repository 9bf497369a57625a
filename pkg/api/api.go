// Package api serves a live map over HTTP.
//
// The API reads the surface of a [tree.Controller] and applies declarative
// edits to its layer state; every edit reconciles the surface before the
// response is written.
//
//	GET    /nodes                     render nodes, topmost first
//	GET    /layers                    declared bases and overlay tree
//	PUT    /layers/{id}?kind=overlay  declare or replace a layer (JSON body)
//	DELETE /layers/{id}               remove a base, or an overlay with its children
//	POST   /bases/{id}/activate       switch the active base
//	POST   /overlays/{id}/move        reorder an overlay (?parent=&index=)
//	GET    /metrics                   Prometheus metrics, when configured
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/project"
	"github.com/matzehuels/mapstack/pkg/surface"
	"github.com/matzehuels/mapstack/pkg/tree"
)

// maxBody bounds layer documents accepted by PUT.
const maxBody = 1 << 20

// Options configures a [Server].
type Options struct {
	Logger  *log.Logger
	Metrics http.Handler // Served at /metrics when set
}

// Server is the HTTP front of one controller.
type Server struct {
	ctl     *tree.Controller
	specs   project.Specs
	logger  *log.Logger
	metrics http.Handler
}

// New creates a server editing ctl. Layer documents are decoded with specs.
func New(ctl *tree.Controller, specs project.Specs, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{ctl: ctl, specs: specs, logger: opts.Logger, metrics: opts.Metrics}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/nodes", s.nodes)
	r.Get("/layers", s.layers)
	r.Put("/layers/{id}", s.putLayer)
	r.Delete("/layers/{id}", s.deleteLayer)
	r.Post("/bases/{id}/activate", s.activateBase)
	r.Post("/overlays/{id}/move", s.moveOverlay)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status())
	})
}

// =============================================================================
// Views
// =============================================================================

// NodeView is one render node as served by GET /nodes.
type NodeView struct {
	ID      layer.ID `json:"id,omitempty"`
	Foreign bool     `json:"foreign,omitempty"`
	*surface.Node
}

// LayerView is one declared layer as served by GET /layers.
type LayerView struct {
	Kind   tree.Kind       `json:"kind"`
	Parent layer.ID        `json:"parent,omitempty"`
	Active bool            `json:"active,omitempty"`
	Spec   json.RawMessage `json:"spec"`
}

// LayersView is the body of GET /layers.
type LayersView struct {
	ActiveBase    layer.ID    `json:"active_base,omitempty"`
	ActiveOverlay layer.ID    `json:"active_overlay,omitempty"`
	Bases         []LayerView `json:"bases"`
	Overlays      []LayerView `json:"overlays"`
}

// ResultView is the body of every successful edit.
type ResultView struct {
	*genre.Result
	Layer layer.ID `json:"layer,omitempty"`
}

// =============================================================================
// Handlers
// =============================================================================

// Nodes returns views of the nodes of c, topmost first.
func Nodes(c *surface.Collection) []NodeView {
	nodes := c.Nodes()
	views := make([]NodeView, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		views = append(views, NodeView{ID: n.ID(), Foreign: n.Foreign(), Node: n})
	}
	return views
}

func (s *Server) nodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Nodes(s.ctl.Reconciler().Snapshot()))
}

func (s *Server) layers(w http.ResponseWriter, r *http.Request) {
	var (
		view LayersView
		err  error
	)
	s.ctl.View(func(st *tree.State) {
		view, err = layersView(st)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func layersView(st *tree.State) (LayersView, error) {
	view := LayersView{
		ActiveBase:    st.ActiveBaseID(),
		ActiveOverlay: st.ActiveOverlayID(),
		Bases:         []LayerView{},
		Overlays:      []LayerView{},
	}
	for _, spec := range st.Bases() {
		data, err := project.EncodeSpec(spec)
		if err != nil {
			return view, err
		}
		id := layer.IDOf(spec)
		view.Bases = append(view.Bases, LayerView{Kind: tree.KindBase, Active: id == view.ActiveBase, Spec: data})
	}
	for _, spec := range st.Overlays().Specs() {
		data, err := project.EncodeSpec(spec)
		if err != nil {
			return view, err
		}
		id := layer.IDOf(spec)
		kind := tree.KindOverlay
		if layer.IsGroup(spec) {
			kind = tree.KindGroup
		}
		parent, _ := st.Parent(id)
		if parent == layer.RootID {
			parent = ""
		}
		view.Overlays = append(view.Overlays, LayerView{Kind: kind, Parent: parent, Active: id == view.ActiveOverlay, Spec: data})
	}
	return view, nil
}

func (s *Server) putLayer(w http.ResponseWriter, r *http.Request) {
	id := layer.ID(chi.URLParam(r, "id"))
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	if len(data) > maxBody {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "layer document larger than %d bytes", maxBody))
		return
	}
	spec, err := project.DecodeSpec(data, s.specs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if got := layer.IDOf(spec); got != id {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "layer id %q does not match path %q", got, id))
		return
	}

	kind := tree.KindOverlay
	if q := r.URL.Query().Get("kind"); q != "" {
		if kind, err = tree.ParseKind(q); err != nil {
			s.writeError(w, err)
			return
		}
	}
	res, created, err := s.ctl.Put(r.Context(), kind, spec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, ResultView{Result: res, Layer: id})
}

func (s *Server) deleteLayer(w http.ResponseWriter, r *http.Request) {
	id := layer.ID(chi.URLParam(r, "id"))
	res, err := s.ctl.Unregister(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultView{Result: res, Layer: id})
}

func (s *Server) activateBase(w http.ResponseWriter, r *http.Request) {
	id := layer.ID(chi.URLParam(r, "id"))
	res, err := s.ctl.Update(r.Context(), func(st *tree.State) error {
		return st.SetActiveBase(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultView{Result: res, Layer: id})
}

func (s *Server) moveOverlay(w http.ResponseWriter, r *http.Request) {
	id := layer.ID(chi.URLParam(r, "id"))
	q := r.URL.Query()
	parent := layer.ID(q.Get("parent"))
	index := -1 // end of the sibling list
	if v := q.Get("index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "index %q", v))
			return
		}
		index = n
	}
	res, err := s.ctl.Update(r.Context(), func(st *tree.State) error {
		if parent == "" {
			p, ok := st.Parent(id)
			if !ok {
				return errors.New(errors.ErrCodeLayerNotFound, "overlay %q not found", id)
			}
			parent = p
		}
		return st.ReorderOverlay(id, parent, index)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultView{Result: res, Layer: id})
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"error"`
}

// status maps an error code to an HTTP status.
func status(code errors.Code) int {
	switch code {
	case errors.ErrCodeLayerNotFound, errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeDuplicateLayer:
		return http.StatusConflict
	case errors.ErrCodeConfiguration, errors.ErrCodeReservedID,
		errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeFetchFailed, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	st := status(code)
	if st >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, st, errorBody{Code: code, Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
