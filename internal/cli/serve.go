package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mapstack/pkg/api"
	"github.com/matzehuels/mapstack/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

// serveOptions holds serve command flags.
type serveOptions struct {
	addr string
}

// serveCommand creates the serve command exposing a live project over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOptions{addr: defaultAddr}

	cmd := &cobra.Command{
		Use:   "serve <project>",
		Short: "Serve a live project over an HTTP API",
		Long: `Load a project, reconcile it and serve the surface and the layer state.
Edits sent to the API reconcile the surface before they are answered.

  GET    /nodes                  render nodes, topmost first
  GET    /layers                 declared bases and overlays
  PUT    /layers/{id}?kind=      declare or replace a layer (JSON with "genre")
  DELETE /layers/{id}            remove a layer
  POST   /bases/{id}/activate    switch the active base
  POST   /overlays/{id}/move     reorder an overlay (?parent=&index=)
  GET    /metrics                Prometheus metrics`,
		Example: `  mapstack serve city.toml
  mapstack serve city.toml --addr 127.0.0.1:9000 --redis-url redis://localhost:6379/0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, path string, opts serveOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewPrometheus(reg)
	observability.SetReconcileHooks(metrics)
	observability.SetFetchHooks(metrics)
	defer observability.Reset()

	ws, err := c.openWorkspace(ctx, path)
	if err != nil {
		return err
	}
	defer ws.Close()

	res, err := ws.ctl.Sync(ctx)
	if err != nil {
		return err
	}
	logger.Info("project loaded", "project", path, "created", res.Created, "pending", res.Pending)

	handler := api.New(ws.ctl, ws.registry, api.Options{
		Logger:  logger,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}).Handler()

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	logger.Info("listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
