package tree

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/layer"
)

// Kind is how a declared layer takes part in the map.
type Kind string

const (
	KindBase    Kind = "base"    // Candidate for the single base layer
	KindOverlay Kind = "overlay" // Overlay, made active if none is
	KindGroup   Kind = "group"   // Overlay that only structures the tree
)

// ParseKind validates a kind given as text.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindBase, KindOverlay, KindGroup:
		return k, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown layer kind %q (want base, overlay or group)", s)
}

// Controller applies declarative edits to a [State] and reconciles the
// surface after each one. It is safe for concurrent use; edits are
// serialized.
type Controller struct {
	mu     sync.Mutex
	state  *State
	rec    *genre.Reconciler
	logger *log.Logger
}

// NewController creates a controller with an empty state.
func NewController(rec *genre.Reconciler, logger *log.Logger) *Controller {
	return NewControllerWithState(New(), rec, logger)
}

// NewControllerWithState creates a controller for an existing state.
func NewControllerWithState(s *State, rec *genre.Reconciler, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{state: s, rec: rec, logger: logger}
}

// Reconciler returns the reconciler the controller drives.
func (c *Controller) Reconciler() *genre.Reconciler { return c.rec }

// Register declares a layer. A base becomes active if no base is; an
// overlay becomes active if no overlay is.
func (c *Controller) Register(ctx context.Context, kind Kind, spec layer.Spec) (*genre.Result, error) {
	return c.edit(ctx, func(s *State) error {
		return register(s, kind, spec)
	})
}

// Put replaces the declared layer with the id of spec, or registers spec
// as kind when no layer has that id. The lookup and the edit happen under
// one lock. created reports which of the two it was.
func (c *Controller) Put(ctx context.Context, kind Kind, spec layer.Spec) (res *genre.Result, created bool, err error) {
	res, err = c.edit(ctx, func(s *State) error {
		id := layer.IDOf(spec)
		if _, ok := s.Base(id); ok {
			return s.EditBase(spec, false)
		}
		if _, ok := s.Overlay(id); ok {
			return s.EditOverlay(spec, false)
		}
		created = true
		return register(s, kind, spec)
	})
	if err != nil {
		return nil, false, err
	}
	return res, created, nil
}

func register(s *State, kind Kind, spec layer.Spec) error {
	switch kind {
	case KindBase:
		return s.AddBase(spec, s.ActiveBaseID() == "")
	case KindOverlay:
		return s.AddOverlay(spec, s.ActiveOverlayID() == "")
	case KindGroup:
		if !layer.IsGroup(spec) {
			return errors.Configuration("layer %q registered as group has genre %q", layer.IDOf(spec), spec.Genre())
		}
		return s.AddOverlay(spec, false)
	}
	_, err := ParseKind(string(kind))
	return err
}

// Unregister removes a base layer or an overlay with its children.
func (c *Controller) Unregister(ctx context.Context, id layer.ID) (*genre.Result, error) {
	return c.edit(ctx, func(s *State) error {
		if _, ok := s.Base(id); ok {
			return s.RemoveBase(id)
		}
		return s.RemoveOverlay(id)
	})
}

// Replace swaps the spec of a declared layer for spec, matched by id.
func (c *Controller) Replace(ctx context.Context, spec layer.Spec) (*genre.Result, error) {
	return c.edit(ctx, func(s *State) error {
		id := layer.IDOf(spec)
		if _, ok := s.Base(id); ok {
			return s.EditBase(spec, false)
		}
		return s.EditOverlay(spec, false)
	})
}

// Update runs fn against the state and reconciles. If fn or the reconcile
// fails the state is left as it was. fn must not keep the state.
func (c *Controller) Update(ctx context.Context, fn func(*State) error) (*genre.Result, error) {
	return c.edit(ctx, fn)
}

// Load replaces the whole state with s once the surface reconciled with it.
// The controller owns s afterwards.
func (c *Controller) Load(ctx context.Context, s *State) (*genre.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.reconcile(ctx, s)
	if err != nil {
		return nil, err
	}
	c.state = s
	return res, nil
}

// View runs fn with the state under the controller lock.
func (c *Controller) View(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state)
}

// Sync reconciles the surface with the current state.
func (c *Controller) Sync(ctx context.Context) (*genre.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sync(ctx)
}

// edit applies fn to a copy of the state, which replaces the state only
// once the surface reconciled with it.
func (c *Controller) edit(ctx context.Context, fn func(*State) error) (*genre.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.state.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	res, err := c.reconcile(ctx, next)
	if err != nil {
		return nil, err
	}
	c.state = next
	return res, nil
}

func (c *Controller) sync(ctx context.Context) (*genre.Result, error) {
	return c.reconcile(ctx, c.state)
}

func (c *Controller) reconcile(ctx context.Context, s *State) (*genre.Result, error) {
	res, err := c.rec.Reconcile(ctx, s.ActiveBase(), s.Overlays())
	if err != nil {
		c.logger.Error("reconcile failed", "err", err)
		return nil, err
	}
	return res, nil
}
