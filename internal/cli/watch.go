package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mapstack/pkg/genre"
)

const defaultDebounce = 100 * time.Millisecond

// watchOptions holds watch command flags.
type watchOptions struct {
	debounce time.Duration
}

// watchCommand creates the watch command for reconciling on file changes.
func (c *CLI) watchCommand() *cobra.Command {
	opts := watchOptions{debounce: defaultDebounce}

	cmd := &cobra.Command{
		Use:   "watch <project>",
		Short: "Reconcile again whenever the project file changes",
		Long: `Load a project and reconcile it, then watch the file. Every saved change
is decoded and reconciled against the same surface, and the outcome is
logged: edits of cosmetic attributes are patched in place, anything else
rebuilds the node stack. A file that fails to load keeps the last good state.`,
		Example: `  mapstack watch city.toml
  mapstack watch city.yaml -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().DurationVar(&opts.debounce, "debounce", opts.debounce, "quiet period before a change is picked up")

	return cmd
}

func (c *CLI) runWatch(cmd *cobra.Command, path string, opts watchOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	ws, err := c.openWorkspace(ctx, path)
	if err != nil {
		return err
	}
	defer ws.Close()

	res, err := ws.ctl.Sync(ctx)
	if err != nil {
		return err
	}
	logResult(logger, "project loaded", res)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors often replace the file, so watch its directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	logger.Info("watching", "project", path)

	return watchFile(ctx, w, abs, opts.debounce, func() {
		res, err := ws.reload(ctx)
		if err != nil {
			logger.Error("reload failed, keeping last state", "err", err)
			return
		}
		logResult(logger, "project reloaded", res)
	})
}

// watchFile calls fn once per burst of events touching path, after the
// burst has been quiet for debounce. It returns when ctx is done.
func watchFile(ctx context.Context, w *fsnotify.Watcher, path string, debounce time.Duration, fn func()) error {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			fn()
		}
	}
}

func logResult(logger *log.Logger, msg string, res *genre.Result) {
	mode := "fast path"
	if res.Rebuilt {
		mode = "rebuild"
	}
	logger.Info(msg,
		"mode", mode,
		"created", res.Created,
		"patched", res.Patched,
		"reused", res.Reused,
		"removed", res.Removed,
		"failed", res.Failed,
		"pending", res.Pending)
}
