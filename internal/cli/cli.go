// Package cli implements the mapstack command-line interface.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mapstack/pkg/buildinfo"
	"github.com/matzehuels/mapstack/pkg/cache"
	"github.com/matzehuels/mapstack/pkg/fetch"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mapstack"

	defaultCacheTTL = time.Hour
	defaultTimeout  = 30 * time.Second
	defaultAddr     = ":8080"

	// redisPrefix namespaces capability documents in a shared Redis.
	redisPrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	verbose  bool
	noCache  bool
	cacheTTL time.Duration
	redisURL string
	retries  int
	timeout  time.Duration
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:   newLogger(w, level),
		cacheTTL: defaultCacheTTL,
		timeout:  defaultTimeout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Mapstack reconciles declared map layers onto a rendering surface",
		Long:         `Mapstack loads a declarative map project (base layers and an overlay tree), resolves every layer through its genre, and keeps a rendering surface in sync with the declaration as it changes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the capabilities cache")
	flags.DurationVar(&c.cacheTTL, "cache-ttl", defaultCacheTTL, "how long fetched capabilities stay fresh")
	flags.StringVar(&c.redisURL, "redis-url", "", "cache capabilities in Redis instead of on disk (redis://host:port/db)")
	flags.IntVar(&c.retries, "retries", 0, "extra attempts for failed capability requests")
	flags.DurationVar(&c.timeout, "timeout", defaultTimeout, "timeout of a single capability request")

	root.AddCommand(c.planCommand())
	root.AddCommand(c.capabCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Client Factory
// =============================================================================

// newClient creates the capabilities client for CLI use. The returned
// cache must be closed by the caller.
func (c *CLI) newClient(ctx context.Context) (*fetch.Client, cache.Cache, error) {
	store, err := c.newCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	client := fetch.NewClient(fetch.Options{
		Cache:   store,
		TTL:     c.cacheTTL,
		Retries: c.retries,
		Timeout: c.timeout,
		Logger:  c.Logger,
	})
	return client, store, nil
}

func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	switch {
	case c.noCache:
		return cache.NewNullCache(), nil
	case c.redisURL != "":
		return cache.NewRedisCache(ctx, c.redisURL, redisPrefix)
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/mapstack/).
func cacheDir() (string, error) {
	return cache.DefaultDir()
}
