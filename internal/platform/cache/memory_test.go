package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	defer s.Close()

	if !s.Set(ctx, "ctx:primary:20260213_09_15", []byte("payload"), time.Minute) {
		t.Fatal("Set returned false")
	}

	got, ok := s.Get(ctx, "ctx:primary:20260213_09_15")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != "payload" {
		t.Errorf("payload mismatch: %q", got)
	}

	if _, ok := s.Get(ctx, "ctx:primary:20260213_09_16"); ok {
		t.Error("expected miss for different bucket key")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	defer s.Close()

	s.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
	if ttl := s.TTL(ctx, "k"); ttl != NoTTL {
		t.Errorf("expected NoTTL after expiry, got %v", ttl)
	}
}

func TestMemoryStoreSetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	defer s.Close()

	if !s.SetIfAbsent(ctx, "k", []byte("first"), time.Minute) {
		t.Fatal("first SetIfAbsent should create the entry")
	}
	if s.SetIfAbsent(ctx, "k", []byte("second"), time.Minute) {
		t.Fatal("second SetIfAbsent should not overwrite")
	}

	got, _ := s.Get(ctx, "k")
	if string(got) != "first" {
		t.Errorf("expected first writer to win, got %q", got)
	}
}

func TestMemoryStoreDeletePattern(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	defer s.Close()

	s.Set(ctx, "ctx:primary:20260213_09_15", []byte("a"), time.Minute)
	s.Set(ctx, "ctx:primary:20260213_09_16", []byte("b"), time.Minute)
	s.Set(ctx, "ctx:swing:20260213_09", []byte("c"), time.Minute)

	if n := s.DeletePattern(ctx, "ctx:primary:*"); n != 2 {
		t.Fatalf("expected 2 deletions, got %d", n)
	}
	if _, ok := s.Get(ctx, "ctx:swing:20260213_09"); !ok {
		t.Error("non-matching key should survive pattern delete")
	}
}

func TestMemoryStoreEviction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	defer s.Close()

	s.Set(ctx, "a", []byte("1"), time.Minute)
	s.Set(ctx, "b", []byte("2"), time.Minute)
	s.Get(ctx, "a") // refresh a
	s.Set(ctx, "c", []byte("3"), time.Minute)

	if _, ok := s.Get(ctx, "b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := s.Get(ctx, "a"); !ok {
		t.Error("recently used entry should survive")
	}
}
