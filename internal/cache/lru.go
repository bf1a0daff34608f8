package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a fixed-size least-recently-used cache. It is safe for concurrent
// use.
type LRU[K comparable, V any] struct {
	capacity int

	items    map[K]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats

	onEvict func(K, V)
}

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	timestamp time.Time
}

// NewLRU creates a cache holding at most capacity entries. Capacities below
// one are raised to one.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: int64(capacity)},
	}
}

// OnEvict registers a callback run for every entry dropped by eviction. It
// runs with the cache locked and must not call back into the cache.
func (c *LRU[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return elem.Value.(*lruEntry[K, V]).value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[K, V])
		entry.value = value
		entry.timestamp = time.Now()
		return
	}

	for c.eviction.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&lruEntry[K, V]{key: key, value: value, timestamp: time.Now()})
	c.items[key] = elem
}

// Delete removes an entry.
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Contains checks if a key exists without updating recency.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.eviction.Len()
}

// Clear removes all entries without running the eviction callback.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.eviction.Init()
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.ItemCount = int64(len(c.items))
	stats.computeHitRate()
	return stats
}

// Prune removes entries older than maxAge.
func (c *LRU[K, V]) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0

	elem := c.eviction.Back()
	for elem != nil {
		prev := elem.Prev()
		if elem.Value.(*lruEntry[K, V]).timestamp.Before(cutoff) {
			c.removeElement(elem)
			pruned++
		}
		elem = prev
	}

	return pruned
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *LRU[K, V]) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*lruEntry[K, V])
	c.removeElement(elem)
	c.stats.Evictions++
	c.stats.LastEvict = time.Now()
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry[K, V]).key)
}
