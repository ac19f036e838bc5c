// Package cache provides a bounded LRU cache with optional TTL expiration.
//
// Data sources that materialize whole graphs from files keep the most recently
// loaded graphs here so repeated catalog lookups do not re-read the disk.
//
// Features:
// - LRU eviction for bounded memory
// - TTL expiration for stale entries
// - Thread-safe operations
// - Hit/miss statistics
//
// Usage:
//
//	graphs := cache.New[*storage.MemoryEngine](64, 10*time.Minute)
//
//	if g, ok := graphs.Get("people"); ok {
//		return g
//	}
//	g := load("people")
//	graphs.Put("people", g)
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxSize is used when New is given a non-positive size.
const DefaultMaxSize = 128

// LRU is a thread-safe least-recently-used cache keyed by string.
//
// The cache uses:
// - Hash map for O(1) lookups
// - Doubly-linked list for LRU ordering
// - TTL for automatic expiration
type LRU[V any] struct {
	mu sync.Mutex

	maxSize int
	ttl     time.Duration
	enabled bool
	now     func() time.Time

	list  *list.List
	items map[string]*list.Element

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// New creates a cache holding at most maxSize entries, each valid for ttl
// (0 = no expiration).
//
// Example:
//
//	// Up to 64 graphs, reloaded after 10 minutes
//	c := cache.New[*storage.MemoryEngine](64, 10*time.Minute)
//
//	// LRU eviction only
//	c = cache.New[*storage.MemoryEngine](64, 0)
func New[V any](maxSize int, ttl time.Duration) *LRU[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &LRU[V]{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: true,
		now:     time.Now,
		list:    list.New(),
		items:   make(map[string]*list.Element, maxSize),
	}
}

// Get returns the cached value for key if present and not expired.
// A hit moves the entry to the front of the LRU list.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.misses.Add(1)
		return zero, false
	}

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	e := elem.Value.(*entry[V])
	if c.ttl > 0 && c.now().After(e.expiresAt) {
		c.removeElement(elem)
		c.misses.Add(1)
		return zero, false
	}

	c.list.MoveToFront(elem)
	c.hits.Add(1)
	return e.value, true
}

// Put stores value under key, replacing and refreshing any existing entry.
// When the cache is full the least recently used entry is evicted.
func (c *LRU[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[V])
		e.value = value
		e.expiresAt = c.expiry()
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	elem := c.list.PushFront(&entry[V]{key: key, value: value, expiresAt: c.expiry()})
	c.items[key] = elem
}

// Remove drops key from the cache. It reports whether an entry was removed.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if ok {
		c.removeElement(elem)
	}
	return ok
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Len returns the number of cached entries, expired ones included until they
// are next touched.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Keys returns the cached keys from most to least recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.list.Len())
	for elem := c.list.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry[V]).key)
	}
	return keys
}

// Stats holds cache performance statistics.
type Stats struct {
	Size      int     // Current number of entries
	MaxSize   int     // Maximum capacity
	Hits      uint64  // Number of cache hits
	Misses    uint64  // Number of cache misses
	Evictions uint64  // Entries dropped to make room
	HitRate   float64 // Hit rate percentage (0-100)
}

// Stats returns a snapshot of the cache statistics.
func (c *LRU[V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return Stats{
		Size:      c.Len(),
		MaxSize:   c.maxSize,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}

// SetEnabled turns the cache on or off. Disabling drops every entry.
func (c *LRU[V]) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = enabled
	if !enabled {
		c.reset()
	}
}

func (c *LRU[V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

// Caller must hold the lock.
func (c *LRU[V]) reset() {
	c.list.Init()
	c.items = make(map[string]*list.Element, c.maxSize)
}

// Caller must hold the lock.
func (c *LRU[V]) evictOldest() {
	if elem := c.list.Back(); elem != nil {
		c.removeElement(elem)
		c.evictions.Add(1)
	}
}

// Caller must hold the lock.
func (c *LRU[V]) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*entry[V]).key)
}
