package genre

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/layer"
	"github.com/matzehuels/mapstack/pkg/observability"
	"github.com/matzehuels/mapstack/pkg/surface"
)

// Result summarises one reconcile pass.
type Result struct {
	Rebuilt    bool   `json:"rebuilt"` // The live collection was replaced
	Created    int    `json:"created"` // Specs whose nodes were created or rebuilt
	Reused     int    `json:"reused"`  // Specs whose nodes were kept as they were
	Patched    int    `json:"patched"` // Specs whose nodes were patched in place
	Removed    int    `json:"removed"` // Orphaned nodes removed in place
	Foreign    int    `json:"foreign"` // Untagged nodes found on the surface
	Carried    int    `json:"carried"` // Pending creations kept from an earlier pass
	Failed     int    `json:"failed"`  // Specs whose asynchronous creation failed earlier
	Pending    int    `json:"pending"` // Asynchronous creations in flight after the pass
	Generation uint64 `json:"generation"`
}

// Stats converts r for the observability hooks.
func (r *Result) Stats() observability.ReconcileStats {
	if r == nil {
		return observability.ReconcileStats{}
	}
	return observability.ReconcileStats{
		Rebuilt: r.Rebuilt,
		Created: r.Created,
		Reused:  r.Reused,
		Patched: r.Patched,
		Removed: r.Removed,
		Pending: r.Pending,
	}
}

// job is one asynchronous creation.
type job struct {
	id     uuid.UUID
	spec   layer.Spec
	fn     AsyncFunc
	ctx    context.Context
	cancel context.CancelFunc
	target *surface.Collection
	gen    uint64
}

// Reconciler brings one surface in line with desired specs. Calls to
// Reconcile are serialized with each other and with the completion of
// asynchronous creations.
type Reconciler struct {
	lookup  Lookup
	surface surface.Surface
	logger  *log.Logger

	mu      sync.Mutex
	gen     uint64
	jobs    map[layer.ID]*job
	failed  map[layer.ID]layer.Spec // specs whose creation failed, not retried until replaced
	rank    map[layer.ID]int        // position of each spec in the last committed resolution order
	running int
	idle    []chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewReconciler creates a reconciler for s resolving genres through lookup.
// A nil logger uses log.Default().
func NewReconciler(lookup Lookup, s surface.Surface, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		lookup:  lookup,
		surface: s,
		logger:  logger,
		jobs:    make(map[layer.ID]*job),
		failed:  make(map[layer.ID]layer.Spec),
		rank:    make(map[layer.ID]int),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Surface returns the surface the reconciler drives.
func (r *Reconciler) Surface() surface.Surface { return r.surface }

// Reconcile makes the surface show base below overlays. Either may be nil.
//
// Every spec is validated before the surface is touched; a configuration
// error aborts the call with no change to the surface.
func (r *Reconciler) Reconcile(ctx context.Context, base layer.Spec, overlays *layer.Overlays) (*Result, error) {
	start := time.Now()
	res, err := r.reconcile(ctx, base, overlays)
	observability.Reconcile().OnReconcile(ctx, res.Stats(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("reconciled",
		"rebuilt", res.Rebuilt,
		"created", res.Created,
		"reused", res.Reused,
		"patched", res.Patched,
		"removed", res.Removed,
		"pending", res.Pending,
		"took", time.Since(start).Round(time.Microsecond))
	return res, nil
}

// resolved is one spec that produces nodes, in resolution order.
type resolved struct {
	spec    layer.Spec
	handler Handler
}

// plan validates the desired state and returns the specs to resolve: the
// base first, then the overlays from last declared to first. Groups are
// skipped without a handler lookup.
func (r *Reconciler) plan(base layer.Spec, overlays *layer.Overlays) ([]resolved, error) {
	var order []resolved
	seen := make(map[layer.ID]bool)

	check := func(s layer.Spec, what string) (Handler, error) {
		if s == nil {
			return nil, errors.Configuration("%s spec is missing", what)
		}
		id := layer.IDOf(s)
		if id == "" {
			return nil, errors.Configuration("%s spec of genre %q has no id", what, s.Genre())
		}
		if seen[id] {
			return nil, errors.Configuration("layer id %q is declared twice", id)
		}
		seen[id] = true
		if layer.IsGroup(s) {
			return nil, nil
		}
		h, err := r.lookup.Handler(s.Genre())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "layer %q", id)
		}
		if v, ok := h.(Validator); ok {
			if err := v.Validate(s); err != nil {
				return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "layer %q", id)
			}
		}
		return h, nil
	}

	if base != nil {
		if layer.IsGroup(base) {
			return nil, errors.Configuration("base layer %q cannot be a group", layer.IDOf(base))
		}
		h, err := check(base, "base")
		if err != nil {
			return nil, err
		}
		order = append(order, resolved{base, h})
	}
	specs := overlays.Specs()
	for i := len(specs) - 1; i >= 0; i-- {
		h, err := check(specs[i], "overlay")
		if err != nil {
			return nil, err
		}
		if h != nil {
			order = append(order, resolved{specs[i], h})
		}
	}
	return order, nil
}

func (r *Reconciler) reconcile(ctx context.Context, base layer.Spec, overlays *layer.Overlays) (*Result, error) {
	order, err := r.plan(base, overlays)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Result{}
	wanted := make(map[layer.ID]resolved, len(order))
	for _, rs := range order {
		wanted[layer.IDOf(rs.spec)] = rs
	}

	// Classify the live nodes.
	live := r.surface.Nodes()
	matches := make(map[layer.ID]*Match)
	var orphans, kept []*surface.Node
	for _, n := range live.Nodes() {
		if n.Foreign() {
			res.Foreign++
			continue
		}
		rs, ok := wanted[n.ID()]
		if !ok {
			orphans = append(orphans, n)
			continue
		}
		kept = append(kept, n)
		m := matches[n.ID()]
		if m == nil {
			m = &Match{Spec: rs.spec, Previous: n.Spec(), Handler: rs.handler}
			matches[n.ID()] = m
		}
		m.Nodes = append(m.Nodes, n)
	}

	staging := surface.NewCollection()
	next := make(map[layer.ID]*job)
	failed := make(map[layer.ID]layer.Spec)
	var started []*job
	env := &Env{Context: ctx, Surface: r.surface, Logger: r.logger}
	env.schedule = func(spec layer.Spec, target *surface.Collection, fn AsyncFunc) {
		jctx, cancel := context.WithCancel(r.ctx)
		j := &job{id: uuid.New(), spec: spec, fn: fn, ctx: jctx, cancel: cancel, target: target}
		if old := next[layer.IDOf(spec)]; old != nil {
			old.cancel()
		}
		next[layer.IDOf(spec)] = j
		started = append(started, j)
	}
	abort := func(err error) (*Result, error) {
		for _, j := range started {
			j.cancel()
		}
		return nil, err
	}

	rebuild := false
	rank := make(map[layer.ID]int, len(order))
	for i, rs := range order {
		id := layer.IDOf(rs.spec)
		rank[id] = i
		m := matches[id]
		switch {
		case m != nil && m.Unchanged():
			staging.Append(m.Nodes...)
			res.Reused++
		case m != nil:
			recreate, err := rs.handler.SyncNodes(env, staging, m)
			if err != nil {
				return abort(errors.Wrap(errors.ErrCodeConfiguration, err, "layer %q", id))
			}
			if recreate {
				res.Created++
				rebuild = true
			} else {
				res.Patched++
			}
		default:
			if j := r.jobs[id]; j != nil && j.spec == rs.spec && j.ctx.Err() == nil {
				next[id] = j
				res.Carried++
				continue
			}
			// A failed creation settles the spec until it is replaced.
			if prev, ok := r.failed[id]; ok && prev == rs.spec {
				failed[id] = prev
				res.Failed++
				continue
			}
			if err := rs.handler.CreateNodes(env, staging, rs.spec); err != nil {
				return abort(errors.Wrap(errors.ErrCodeConfiguration, err, "layer %q", id))
			}
			res.Created++
			rebuild = true
		}
	}

	// Reordered specs only show up if the collection is rebuilt.
	if !rebuild && !slices.Equal(kept, staging.Nodes()) {
		rebuild = true
	}

	r.gen++
	if rebuild {
		r.surface.SetNodes(staging)
	} else {
		for _, n := range orphans {
			if r.surface.RemoveNode(n) {
				res.Removed++
			}
		}
	}
	res.Rebuilt = rebuild
	res.Generation = r.gen

	for id, j := range r.jobs {
		if next[id] != j {
			j.cancel()
			r.logger.Debug("creation cancelled", "layer", id, "job", j.id)
		}
	}
	current := r.surface.Nodes()
	for _, j := range next {
		j.target = current
		j.gen = r.gen
	}
	r.jobs = next
	r.failed = failed
	r.rank = rank
	res.Pending = len(next)

	for _, j := range started {
		if next[layer.IDOf(j.spec)] != j {
			continue
		}
		r.running++
		go r.run(j)
	}
	return res, nil
}

func (r *Reconciler) run(j *job) {
	nodes, err := j.fn(j.ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.finished()

	id := layer.IDOf(j.spec)
	genre := string(j.spec.Genre())
	outcome := observability.OutcomeAppended
	current := r.jobs[id] == j
	switch {
	case j.ctx.Err() != nil:
		outcome = observability.OutcomeCancelled
	case !current || r.surface.Nodes() != j.target || r.gen != j.gen:
		outcome = observability.OutcomeStale
	case err != nil:
		outcome = observability.OutcomeFailed
	}
	if current {
		delete(r.jobs, id)
	}
	j.cancel()
	observability.Reconcile().OnAsyncComplete(j.ctx, genre, outcome)

	switch outcome {
	case observability.OutcomeFailed:
		r.failed[id] = j.spec
		r.logger.Warn("layer not created", "layer", id, "genre", genre, "err", err)
		return
	case observability.OutcomeAppended:
	default:
		r.logger.Debug("creation dropped", "layer", id, "genre", genre, "job", j.id, "outcome", outcome)
		return
	}

	tag(nodes, j.spec)
	j.target.Insert(r.position(j.target, id), nodes...)
	r.logger.Debug("layer created", "layer", id, "genre", genre, "nodes", len(nodes), "job", j.id)
}

// position returns where nodes of id go in target: below the first node of
// a spec resolved after id.
func (r *Reconciler) position(target *surface.Collection, id layer.ID) int {
	rank, ok := r.rank[id]
	if !ok {
		return target.Len()
	}
	for i, n := range target.Nodes() {
		if n.Foreign() {
			continue
		}
		if other, ok := r.rank[n.ID()]; ok && other > rank {
			return i
		}
	}
	return target.Len()
}

// Pending returns the number of asynchronous creations in flight.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Snapshot returns copies of the live nodes, bottom first. It is safe to
// call while asynchronous creations are in flight.
func (r *Reconciler) Snapshot() *surface.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := r.surface.Nodes().Nodes()
	out := make([]*surface.Node, len(live))
	for i, n := range live {
		out[i] = n.Clone()
	}
	return surface.NewCollection(out...)
}

// finished is called with mu held when a job goroutine is done.
func (r *Reconciler) finished() {
	r.running--
	if r.running > 0 {
		return
	}
	for _, ch := range r.idle {
		close(ch)
	}
	r.idle = nil
}

// Wait blocks until every asynchronous creation has finished or ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	r.mu.Lock()
	if r.running == 0 {
		r.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	r.idle = append(r.idle, ch)
	r.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every pending creation and waits for them to return.
func (r *Reconciler) Close() {
	r.cancel()
	_ = r.Wait(context.Background())
}
