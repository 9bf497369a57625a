// Package fetch retrieves remote documents for network-backed genres.
//
// [Client] is shared by every capability-driven genre. It applies default
// headers and a request timeout, maps HTTP status codes to [ErrNotFound] and
// [ErrNetwork], caches response bodies in a [cache.Cache], retries transient
// failures when configured to, and collapses concurrent requests for the
// same URL into one round trip.
//
// A reconcile that declares three WMS overlays against the same service thus
// issues a single GetCapabilities request:
//
//	c := fetch.NewClient(fetch.Options{Cache: fc, TTL: time.Hour})
//	body, err := c.Get(ctx, fetch.WithQuery(url, map[string]string{
//	    "SERVICE": "WMS",
//	    "REQUEST": "GetCapabilities",
//	}))
package fetch
