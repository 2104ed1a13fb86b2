package cache

import (
	"container/list"
	"context"
	"path"
	"sync"
	"time"
)

// memoryItem represents an item in the cache
type memoryItem struct {
	key        string
	payload    []byte
	expiration time.Time
}

// MemoryStore implements Store with an in-process LRU map. Used when Redis is
// disabled and as the store double in tests.
type MemoryStore struct {
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
	mu      sync.Mutex
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryStore creates an in-memory store bounded to maxSize entries.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}

	s := &MemoryStore{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Get retrieves a payload, honoring expiry.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, exists := s.items[key]
	if !exists {
		return nil, false
	}

	item := element.Value.(*memoryItem)
	if time.Now().After(item.expiration) {
		s.remove(key)
		return nil, false
	}

	s.lru.MoveToFront(element)
	return item.payload, true
}

// Set stores a payload with TTL.
func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(key, payload, ttl)
	return true
}

// SetIfAbsent stores a payload only when the key has no live entry.
func (s *MemoryStore) SetIfAbsent(_ context.Context, key string, payload []byte, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if element, exists := s.items[key]; exists {
		item := element.Value.(*memoryItem)
		if time.Now().Before(item.expiration) {
			return false
		}
	}
	s.put(key, payload, ttl)
	return true
}

// put inserts or updates an entry (caller must hold lock).
func (s *MemoryStore) put(key string, payload []byte, ttl time.Duration) {
	expiration := time.Now().Add(ttl)

	if element, exists := s.items[key]; exists {
		item := element.Value.(*memoryItem)
		item.payload = payload
		item.expiration = expiration
		s.lru.MoveToFront(element)
		return
	}

	element := s.lru.PushFront(&memoryItem{
		key:        key,
		payload:    payload,
		expiration: expiration,
	})
	s.items[key] = element

	if s.lru.Len() > s.maxSize {
		s.evictOldest()
	}
}

// Delete removes a key.
func (s *MemoryStore) Delete(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.items[key]
	s.remove(key)
	return exists
}

// DeletePattern removes keys matching a glob pattern.
func (s *MemoryStore) DeletePattern(_ context.Context, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	toRemove := make([]string, 0)
	for key := range s.items {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			toRemove = append(toRemove, key)
		}
	}
	for _, key := range toRemove {
		s.remove(key)
	}
	return len(toRemove)
}

// TTL returns the remaining expiry for key, or NoTTL.
func (s *MemoryStore) TTL(_ context.Context, key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, exists := s.items[key]
	if !exists {
		return NoTTL
	}
	remaining := time.Until(element.Value.(*memoryItem).expiration)
	if remaining <= 0 {
		return NoTTL
	}
	return remaining
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	return nil
}

// remove removes an item (caller must hold lock).
func (s *MemoryStore) remove(key string) {
	if element, exists := s.items[key]; exists {
		s.lru.Remove(element)
		delete(s.items, key)
	}
}

// evictOldest removes the least recently used item (caller must hold lock).
func (s *MemoryStore) evictOldest() {
	element := s.lru.Back()
	if element != nil {
		s.remove(element.Value.(*memoryItem).key)
	}
}

// cleanupLoop periodically removes expired items.
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stopCh:
			return
		}
	}
}

// cleanupExpired removes all expired items.
func (s *MemoryStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	toRemove := make([]string, 0)
	for key, element := range s.items {
		if now.After(element.Value.(*memoryItem).expiration) {
			toRemove = append(toRemove, key)
		}
	}
	for _, key := range toRemove {
		s.remove(key)
	}
}
