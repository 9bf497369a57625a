package genre

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/surface"
)

// Handler creates and updates the render nodes of one genre.
type Handler interface {
	// ID returns the genre the handler renders.
	ID() layer.GenreID

	// CreateNodes builds fresh nodes for spec and appends them to target.
	// It never touches the live collection of env.Surface. Handlers that
	// cannot build nodes right away schedule the work with env.Go.
	CreateNodes(env *Env, target *surface.Collection, spec layer.Spec) error

	// SyncNodes updates the nodes of a match whose spec was replaced. It
	// either puts the (possibly patched) nodes of m into target and returns
	// false, or creates new nodes into target and returns true.
	SyncNodes(env *Env, target *surface.Collection, m *Match) (recreate bool, err error)
}

// Validator is implemented by handlers that check specs before a reconcile
// touches the surface.
type Validator interface {
	Validate(spec layer.Spec) error
}

// Factory is implemented by handlers that can produce an empty spec of
// their genre with defaults applied, used when decoding project files.
type Factory interface {
	NewSpec() layer.Spec
}

// Match pairs a desired spec with the live nodes tagged with the same id.
// It only exists during one reconcile.
type Match struct {
	Spec     layer.Spec      // Desired spec
	Previous layer.Spec      // Spec the first matched node was tagged with
	Nodes    []*surface.Node // Matched live nodes, in surface order
	Handler  Handler
}

// Unchanged reports whether the desired spec is the very value the nodes
// were made from.
func (m *Match) Unchanged() bool { return m.Previous == m.Spec }

// Retag tags every matched node with the desired spec.
func (m *Match) Retag() {
	for _, n := range m.Nodes {
		n.SetSpec(m.Spec)
	}
}

// AsyncFunc produces the nodes of a spec. It runs on its own goroutine and
// should return promptly once ctx is done. The returned nodes need not be
// tagged.
type AsyncFunc func(ctx context.Context) ([]*surface.Node, error)

// Env is what handlers see of the reconcile that invoked them.
type Env struct {
	Context context.Context
	Surface surface.Surface
	Logger  *log.Logger

	schedule func(spec layer.Spec, target *surface.Collection, fn AsyncFunc)
}

// NewEnv returns an environment for calling handlers outside a reconciler.
// [Env.Go] then runs the function inline.
func NewEnv(ctx context.Context, s surface.Surface, logger *log.Logger) *Env {
	if logger == nil {
		logger = log.Default()
	}
	return &Env{Context: ctx, Surface: s, Logger: logger}
}

// Go schedules fn to create the nodes of spec. Its nodes are tagged with
// spec and added to target once it returns, if spec is still wanted by then.
// Errors are logged and yield no nodes.
func (e *Env) Go(spec layer.Spec, target *surface.Collection, fn AsyncFunc) {
	if e.schedule != nil {
		e.schedule(spec, target, fn)
		return
	}
	ctx := e.Context
	if ctx == nil {
		ctx = context.Background()
	}
	nodes, err := fn(ctx)
	if err != nil {
		e.Logger.Warn("layer not created", "layer", layer.IDOf(spec), "genre", spec.Genre(), "err", err)
		return
	}
	tag(nodes, spec)
	target.Append(nodes...)
}

func tag(nodes []*surface.Node, spec layer.Spec) {
	for _, n := range nodes {
		if n.Spec() == nil {
			n.SetSpec(spec)
		}
	}
}
