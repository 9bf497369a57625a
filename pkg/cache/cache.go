// Package cache stores fetched documents between runs.
//
// Capability documents change rarely but are requested on every reconcile
// that creates a capability-driven layer. [Cache] lets the fetch client keep
// them locally ([FileCache]), share them between processes ([RedisCache]) or
// skip caching entirely ([NullCache]).
//
// All implementations are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long capability documents are kept unless configured.
const DefaultTTL = time.Hour

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored bytes and whether the key was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
