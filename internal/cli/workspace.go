package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mapstack/pkg/cache"
	"github.com/matzehuels/mapstack/pkg/genre"
	"github.com/matzehuels/mapstack/pkg/genres"
	"github.com/matzehuels/mapstack/pkg/genres/ogc"
	"github.com/matzehuels/mapstack/pkg/project"
	"github.com/matzehuels/mapstack/pkg/surface"
	"github.com/matzehuels/mapstack/pkg/tree"
)

// workspace is a loaded project wired to a surface.
type workspace struct {
	path     string
	project  *project.Project
	registry *genre.Registry
	surface  *surface.Memory
	rec      *genre.Reconciler
	ctl      *tree.Controller
	cache    cache.Cache
}

// openWorkspace loads the project at path with the built-in genres. The
// surface starts empty; call sync to reconcile it.
func (c *CLI) openWorkspace(ctx context.Context, path string) (*workspace, error) {
	client, store, err := c.newClient(ctx)
	if err != nil {
		return nil, err
	}
	ws, err := newWorkspace(path, client, c.Logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	ws.cache = store
	return ws, nil
}

func newWorkspace(path string, f ogc.Fetcher, logger *log.Logger) (*workspace, error) {
	reg := genres.NewRegistry(f)
	p, err := project.Load(path, reg)
	if err != nil {
		return nil, err
	}
	for _, key := range p.Undecoded {
		logger.Warn("unknown project key", "key", key)
	}
	st, err := p.State()
	if err != nil {
		return nil, err
	}
	s := p.Surface()
	rec := genre.NewReconciler(reg, s, logger)
	return &workspace{
		path:     path,
		project:  p,
		registry: reg,
		surface:  s,
		rec:      rec,
		ctl:      tree.NewControllerWithState(st, rec, logger),
	}, nil
}

// sync reconciles the surface and waits up to wait for asynchronous
// creations. It reports whether every creation finished in time.
func (w *workspace) sync(ctx context.Context, wait time.Duration) (*genre.Result, bool, error) {
	res, err := w.ctl.Sync(ctx)
	if err != nil {
		return nil, false, err
	}
	return res, w.wait(ctx, wait), nil
}

func (w *workspace) wait(ctx context.Context, wait time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return w.rec.Wait(ctx) == nil
}

// reload decodes the project file again and replaces the desired state.
func (w *workspace) reload(ctx context.Context) (*genre.Result, error) {
	p, err := project.Load(w.path, w.registry)
	if err != nil {
		return nil, err
	}
	next, err := p.State()
	if err != nil {
		return nil, err
	}
	res, err := w.ctl.Load(ctx, next)
	if err != nil {
		return nil, err
	}
	w.project = p
	return res, nil
}

func (w *workspace) Close() {
	w.rec.Close()
	if w.cache != nil {
		w.cache.Close()
	}
}
