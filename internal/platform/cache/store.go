// Package cache provides fail-open key/value stores with per-key TTL.
//
// Every Store implementation treats backend failure as a cache miss or a
// failed write, never as an error the caller has to handle. The service must
// keep answering requests with the cache backend entirely absent.
package cache

import (
	"context"
	"time"
)

// NoTTL is returned by TTL when the key is absent or the backend is down.
const NoTTL = time.Duration(-1)

// Store is a key/value store with per-key expiry and pattern invalidation.
type Store interface {
	// Get returns the payload for key, or ok=false on miss or backend failure.
	Get(ctx context.Context, key string) (payload []byte, ok bool)

	// Set writes payload under key with the given TTL. Returns false when the
	// write did not happen (backend down); the caller's result is unaffected.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) bool

	// SetIfAbsent writes only when the key does not already exist. Returns
	// true when this call created the entry.
	SetIfAbsent(ctx context.Context, key string, payload []byte, ttl time.Duration) bool

	// Delete removes a single key. Returns true when a key was removed.
	Delete(ctx context.Context, key string) bool

	// DeletePattern removes all keys matching a glob pattern and returns the
	// number of keys removed. Implementations must not block the whole
	// keyspace while scanning.
	DeletePattern(ctx context.Context, pattern string) int

	// TTL returns the remaining TTL for key, or NoTTL when the key is absent
	// or the backend is unavailable. Diagnostic only.
	TTL(ctx context.Context, key string) time.Duration

	// Ping reports backend reachability. The only Store method allowed to
	// return an error; used by readiness probes, never on the request path.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
