package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// downStore stands in for an unreachable L2 backend.
type downStore struct{}

func (downStore) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (downStore) Set(context.Context, string, []byte, time.Duration) bool { return false }
func (downStore) SetIfAbsent(context.Context, string, []byte, time.Duration) bool { return false }
func (downStore) Delete(context.Context, string) bool { return false }
func (downStore) DeletePattern(context.Context, string) int { return 0 }
func (downStore) TTL(context.Context, string) time.Duration { return NoTTL }
func (downStore) Ping(context.Context) error { return errors.New("backend down") }
func (downStore) Close() error { return nil }

func TestLayeredStoreBackfillsL1OnL2Hit(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemoryStore(10)
	l2 := NewMemoryStore(10)
	s := NewLayeredStore(l1, l2)
	defer s.Close()

	// Entry exists only in L2, as if written by another instance.
	l2.Set(ctx, "ctx:primary:20260213_09_15", []byte("payload"), time.Minute)

	got, ok := s.Get(ctx, "ctx:primary:20260213_09_15")
	if !ok || string(got) != "payload" {
		t.Fatalf("expected L2 hit, got ok=%v payload=%q", ok, got)
	}

	// The hit must have been copied into L1: remove it from L2 and read again.
	l2.Delete(ctx, "ctx:primary:20260213_09_15")
	got, ok = s.Get(ctx, "ctx:primary:20260213_09_15")
	if !ok || string(got) != "payload" {
		t.Errorf("expected backfilled L1 hit after L2 delete, got ok=%v payload=%q", ok, got)
	}
}

func TestLayeredStoreWritesThroughWithCappedL1TTL(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemoryStore(10)
	l2 := NewMemoryStore(10)
	s := NewLayeredStore(l1, l2)
	defer s.Close()

	if !s.Set(ctx, "k", []byte("v"), 15*time.Minute) {
		t.Fatal("Set returned false")
	}

	if _, ok := l2.Get(ctx, "k"); !ok {
		t.Error("write should reach L2")
	}
	if ttl := l1.TTL(ctx, "k"); ttl == NoTTL || ttl > l1TTLCap {
		t.Errorf("L1 TTL should be capped at %v, got %v", l1TTLCap, ttl)
	}
	if ttl := l2.TTL(ctx, "k"); ttl <= l1TTLCap {
		t.Errorf("L2 should keep the full TTL, got %v", ttl)
	}
}

func TestLayeredStoreFailsOpenWithoutL2(t *testing.T) {
	ctx := context.Background()
	s := NewLayeredStore(NewMemoryStore(10), downStore{})
	defer s.Close()

	if !s.Set(ctx, "k", []byte("v"), time.Minute) {
		t.Fatal("Set should succeed on L1 alone")
	}
	if got, ok := s.Get(ctx, "k"); !ok || string(got) != "v" {
		t.Errorf("expected L1 hit with L2 down, got ok=%v payload=%q", ok, got)
	}
	if err := s.Ping(ctx); err == nil {
		t.Error("Ping should report the L2 failure")
	}
}

func TestLayeredStoreDeletePatternPurgesBothLayers(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemoryStore(10)
	l2 := NewMemoryStore(10)
	s := NewLayeredStore(l1, l2)
	defer s.Close()

	s.Set(ctx, "ctx:primary:20260213_09_15", []byte("a"), time.Minute)
	s.Set(ctx, "ctx:swing:20260213_09", []byte("b"), time.Minute)

	if n := s.DeletePattern(ctx, "ctx:primary:*"); n != 1 {
		t.Fatalf("expected 1 deletion, got %d", n)
	}
	if _, ok := l1.Get(ctx, "ctx:primary:20260213_09_15"); ok {
		t.Error("flushed key should be gone from L1")
	}
	if _, ok := s.Get(ctx, "ctx:swing:20260213_09"); !ok {
		t.Error("non-matching key should survive")
	}
}

func TestLayeredStoreSetIfAbsentDefersToL2(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemoryStore(10)
	l2 := NewMemoryStore(10)
	s := NewLayeredStore(l1, l2)
	defer s.Close()

	// Another instance already created the entry in the shared layer.
	l2.Set(ctx, "k", []byte("theirs"), time.Minute)

	if s.SetIfAbsent(ctx, "k", []byte("ours"), time.Minute) {
		t.Fatal("SetIfAbsent should lose to the existing L2 entry")
	}
	if !s.SetIfAbsent(ctx, "fresh", []byte("ours"), time.Minute) {
		t.Fatal("SetIfAbsent should create a fresh entry")
	}
	if got, ok := l1.Get(ctx, "fresh"); !ok || string(got) != "ours" {
		t.Errorf("created entry should be copied into L1, got ok=%v payload=%q", ok, got)
	}
}
