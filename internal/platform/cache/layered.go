package cache

import (
	"context"
	"time"
)

// l1TTLCap bounds L1 entry lifetime so a stale in-process copy cannot outlive
// a flush issued against Redis by more than this window.
const l1TTLCap = time.Minute

// LayeredStore composes an in-process L1 store with a Redis L2 store. Reads
// try L1 first and backfill it on an L2 hit; writes go through to both
// layers. L2 is authoritative for SetIfAbsent, TTL, and Ping. Like every
// Store, it fails open: an unreachable L2 degrades to L1-only behavior.
type LayeredStore struct {
	l1 Store
	l2 Store
}

// NewLayeredStore creates a two-layer store. Both layers are required.
func NewLayeredStore(l1, l2 Store) *LayeredStore {
	return &LayeredStore{l1: l1, l2: l2}
}

func (s *LayeredStore) l1TTL(ctx context.Context, key string, ttl time.Duration) time.Duration {
	if ttl <= 0 {
		if remaining := s.l2.TTL(ctx, key); remaining != NoTTL {
			ttl = remaining
		}
	}
	if ttl <= 0 || ttl > l1TTLCap {
		return l1TTLCap
	}
	return ttl
}

// Get returns the payload from L1, falling back to L2 and backfilling L1 on
// an L2 hit.
func (s *LayeredStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if payload, ok := s.l1.Get(ctx, key); ok {
		return payload, true
	}

	payload, ok := s.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}

	s.l1.Set(ctx, key, payload, s.l1TTL(ctx, key, 0))
	return payload, true
}

// Set writes through to both layers; the L1 copy's TTL is capped. Returns
// true when either layer accepted the write.
func (s *LayeredStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) bool {
	l1OK := s.l1.Set(ctx, key, payload, s.l1TTL(ctx, key, ttl))
	l2OK := s.l2.Set(ctx, key, payload, ttl)
	return l1OK || l2OK
}

// SetIfAbsent defers to L2, the layer shared across instances; on creation
// the entry is copied into L1.
func (s *LayeredStore) SetIfAbsent(ctx context.Context, key string, payload []byte, ttl time.Duration) bool {
	created := s.l2.SetIfAbsent(ctx, key, payload, ttl)
	if created {
		s.l1.Set(ctx, key, payload, s.l1TTL(ctx, key, ttl))
	}
	return created
}

// Delete removes the key from both layers.
func (s *LayeredStore) Delete(ctx context.Context, key string) bool {
	l1Deleted := s.l1.Delete(ctx, key)
	l2Deleted := s.l2.Delete(ctx, key)
	return l1Deleted || l2Deleted
}

// DeletePattern removes matching keys from both layers, reporting the L2
// count; the in-process copies are a subset of what L2 held.
func (s *LayeredStore) DeletePattern(ctx context.Context, pattern string) int {
	l1Deleted := s.l1.DeletePattern(ctx, pattern)
	l2Deleted := s.l2.DeletePattern(ctx, pattern)
	if l2Deleted >= l1Deleted {
		return l2Deleted
	}
	return l1Deleted
}

// TTL reports the L2 expiry, falling back to L1 when L2 has no answer.
func (s *LayeredStore) TTL(ctx context.Context, key string) time.Duration {
	if d := s.l2.TTL(ctx, key); d != NoTTL {
		return d
	}
	return s.l1.TTL(ctx, key)
}

// Ping reports L2 reachability; L1 is in-process and always available.
func (s *LayeredStore) Ping(ctx context.Context) error {
	return s.l2.Ping(ctx)
}

// Close closes both layers, returning the first error.
func (s *LayeredStore) Close() error {
	l1Err := s.l1.Close()
	l2Err := s.l2.Close()
	if l1Err != nil {
		return l1Err
	}
	return l2Err
}
