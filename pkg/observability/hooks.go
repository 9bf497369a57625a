// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends to the library packages.
// Consumers register hooks at startup to receive events about reconcile
// passes, asynchronous layer creations and capability fetches.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so there are no import
// cycles and the core stays free of any metrics framework.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    p := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	    observability.SetReconcileHooks(p)
//	    observability.SetFetchHooks(p)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	res, err := r.reconcile(ctx, base, overlays)
//	observability.Reconcile().OnReconcile(ctx, res.Stats(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Reconcile Hooks
// =============================================================================

// ReconcileStats summarises one reconcile pass.
type ReconcileStats struct {
	Rebuilt bool // The live collection was replaced
	Created int  // Specs whose nodes were created (including pending async ones)
	Reused  int  // Specs whose nodes were kept untouched
	Patched int  // Specs whose nodes were patched in place
	Removed int  // Orphaned nodes removed on the fast path
	Pending int  // Asynchronous creations still in flight after the pass
}

// Async completion outcomes.
const (
	OutcomeAppended  = "appended"
	OutcomeStale     = "stale"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// ReconcileHooks receives events from the reconciler.
type ReconcileHooks interface {
	// OnReconcile records a finished reconcile pass.
	OnReconcile(ctx context.Context, stats ReconcileStats, duration time.Duration, err error)

	// OnAsyncComplete records the outcome of an asynchronous creation.
	OnAsyncComplete(ctx context.Context, genre, outcome string)
}

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives events from the document fetch client.
type FetchHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, host, path string, err error)

	// OnCacheHit records a document served from cache.
	OnCacheHit(ctx context.Context, host string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopReconcileHooks is a no-op implementation of ReconcileHooks.
type NoopReconcileHooks struct{}

func (NoopReconcileHooks) OnReconcile(context.Context, ReconcileStats, time.Duration, error) {}
func (NoopReconcileHooks) OnAsyncComplete(context.Context, string, string)                   {}

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnRequest(context.Context, string, string)                      {}
func (NoopFetchHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopFetchHooks) OnError(context.Context, string, string, error)                 {}
func (NoopFetchHooks) OnCacheHit(context.Context, string)                             {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	reconcileHooks ReconcileHooks = NoopReconcileHooks{}
	fetchHooks     FetchHooks     = NoopFetchHooks{}
	hooksMu        sync.RWMutex
)

// SetReconcileHooks registers custom reconcile hooks.
// This should be called once at application startup.
func SetReconcileHooks(h ReconcileHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		reconcileHooks = h
	}
}

// SetFetchHooks registers custom fetch hooks.
// This should be called once at application startup.
func SetFetchHooks(h FetchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fetchHooks = h
	}
}

// Reconcile returns the registered reconcile hooks.
func Reconcile() ReconcileHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return reconcileHooks
}

// Fetch returns the registered fetch hooks.
func Fetch() FetchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fetchHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	reconcileHooks = NoopReconcileHooks{}
	fetchHooks = NoopFetchHooks{}
}
