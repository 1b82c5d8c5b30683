package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is an in-process Store with LRU eviction, per-entry TTL and a
// tag index.
type MemoryStore struct {
	entries    map[string]*entry
	tagIndex   map[string]map[string]struct{}
	mutex      sync.Mutex
	maxEntries int
	now        func() time.Time
	// LRU implementation
	head *entry
	tail *entry
	// Statistics tracking (atomic for thread safety)
	hits      int64
	misses    int64
	evictions int64
}

var _ Store = (*MemoryStore)(nil)

type entry struct {
	key       string
	value     []byte
	tags      []string
	expiresAt time.Time
	// LRU doubly-linked list pointers
	prev *entry
	next *entry
}

// NewMemoryStore creates a store holding at most maxEntries entries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	s := &MemoryStore{
		entries:    make(map[string]*entry),
		tagIndex:   make(map[string]map[string]struct{}),
		maxEntries: maxEntries,
		now:        time.Now,
	}

	// Initialize LRU doubly-linked list with dummy head and tail
	s.head = &entry{}
	s.tail = &entry{}
	s.head.next = s.tail
	s.tail.prev = s.head

	return s
}

// Get retrieves a value from the cache
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.entries[key]
	if !exists {
		atomic.AddInt64(&s.misses, 1)
		return nil, false, nil
	}

	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.remove(e)
		atomic.AddInt64(&s.misses, 1)
		return nil, false, nil
	}

	s.moveToFront(e)
	atomic.AddInt64(&s.hits, 1)
	return e.value, true, nil
}

// Set stores a value in the cache. A ttl of zero never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if existing, exists := s.entries[key]; exists {
		s.remove(existing)
	}

	s.evictIfNeeded()

	e := &entry{
		key:   key,
		value: value,
		tags:  append([]string(nil), tags...),
	}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.entries[key] = e
	s.addToFront(e)
	for _, tag := range e.tags {
		keys, ok := s.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tagIndex[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

// InvalidateTags removes every entry carrying any of tags.
func (s *MemoryStore) InvalidateTags(_ context.Context, tags ...string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	for _, tag := range tags {
		for key := range s.tagIndex[tag] {
			if e, ok := s.entries[key]; ok {
				s.remove(e)
				removed++
			}
		}
		delete(s.tagIndex, tag)
	}
	return removed, nil
}

// Flush clears all cache entries and resets statistics
func (s *MemoryStore) Flush(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries = make(map[string]*entry)
	s.tagIndex = make(map[string]map[string]struct{})
	s.head.next = s.tail
	s.tail.prev = s.head

	atomic.StoreInt64(&s.hits, 0)
	atomic.StoreInt64(&s.misses, 0)
	atomic.StoreInt64(&s.evictions, 0)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Stats returns cache statistics
func (s *MemoryStore) Stats() Stats {
	s.mutex.Lock()
	count := len(s.entries)
	s.mutex.Unlock()

	hits := atomic.LoadInt64(&s.hits)
	misses := atomic.LoadInt64(&s.misses)
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Entries:   count,
		Hits:      hits,
		Misses:    misses,
		Evictions: atomic.LoadInt64(&s.evictions),
		HitRate:   rate,
	}
}

// evictIfNeeded makes room for one more entry
func (s *MemoryStore) evictIfNeeded() {
	for len(s.entries) >= s.maxEntries && s.tail.prev != s.head {
		s.remove(s.tail.prev)
		atomic.AddInt64(&s.evictions, 1)
	}
}

// remove unlinks e from the list, the map and the tag index. Caller holds the lock.
func (s *MemoryStore) remove(e *entry) {
	s.removeFromList(e)
	delete(s.entries, e.key)
	for _, tag := range e.tags {
		if keys, ok := s.tagIndex[tag]; ok {
			delete(keys, e.key)
			if len(keys) == 0 {
				delete(s.tagIndex, tag)
			}
		}
	}
}

// LRU doubly-linked list operations
func (s *MemoryStore) addToFront(e *entry) {
	e.prev = s.head
	e.next = s.head.next
	s.head.next.prev = e
	s.head.next = e
}

func (s *MemoryStore) removeFromList(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (s *MemoryStore) moveToFront(e *entry) {
	s.removeFromList(e)
	s.addToFront(e)
}
