package genre

import (
	"slices"
	"sync"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/layer"
)

// Lookup resolves a genre id to its handler.
type Lookup interface {
	Handler(id layer.GenreID) (Handler, error)
}

// Registry holds at most one handler per genre. Handlers are registered at
// startup and only read while reconciling; it is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[layer.GenreID]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[layer.GenreID]Handler)}
}

// Register adds h. It fails for the group genre, an empty id and an id that
// is already registered.
func (r *Registry) Register(h Handler) error {
	id := h.ID()
	switch {
	case id == "":
		return errors.Configuration("genre id is empty")
	case id == layer.GroupGenre:
		return errors.Configuration("genre %q is reserved for groups", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[id]; ok {
		return errors.Configuration("genre %q is already registered", id)
	}
	r.handlers[id] = h
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(hs ...Handler) {
	for _, h := range hs {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

// Handler returns the handler for id. Groups have no handler.
func (r *Registry) Handler(id layer.GenreID) (Handler, error) {
	if id == layer.GroupGenre {
		return nil, errors.Configuration("genre %q has no handler", id)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	if !ok {
		return nil, errors.Configuration("genre %q is not registered", id)
	}
	return h, nil
}

// Remove unregisters id and reports whether it was registered.
func (r *Registry) Remove(id layer.GenreID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[id]; !ok {
		return false
	}
	delete(r.handlers, id)
	return true
}

// Genres returns the registered genre ids, sorted.
func (r *Registry) Genres() []layer.GenreID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]layer.GenreID, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NewSpec returns an empty spec of genre id with its defaults applied.
func (r *Registry) NewSpec(id layer.GenreID) (layer.Spec, error) {
	if id == layer.GroupGenre {
		return layer.NewGroup("", ""), nil
	}
	h, err := r.Handler(id)
	if err != nil {
		return nil, err
	}
	f, ok := h.(Factory)
	if !ok {
		return nil, errors.Configuration("genre %q cannot be declared in files", id)
	}
	return f.NewSpec(), nil
}
