// Package cache provides a small bounded result cache keyed by string. Once
// capacity is reached the oldest-inserted entry is evicted, regardless of how
// often it has been read since — insertion-order (FIFO) eviction, not LRU.
// Downstream behavior depends on this ordering, so reads never reorder keys.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// FIFO is a bounded string-keyed cache with insertion-order eviction. It is
// safe for concurrent use.
type FIFO[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]V
	order    []string
	hits     atomic.Int64
	misses   atomic.Int64
}

// NewFIFO creates a cache holding at most capacity entries. Capacity must be
// positive.
func NewFIFO[V any](capacity int) (*FIFO[V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	return &FIFO[V]{
		capacity: capacity,
		entries:  make(map[string]V, capacity),
		order:    make([]string, 0, capacity),
	}, nil
}

// Get returns the cached value for key, if present.
func (c *FIFO[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	v, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores value under key, evicting the oldest-inserted entry when the
// cache is full. Re-putting an existing key overwrites the value but keeps
// the key's original insertion position.
func (c *FIFO[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		c.entries[key] = value
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = value
	c.order = append(c.order, key)
}

// Contains reports whether key is cached without counting a hit or miss.
func (c *FIFO[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of cached entries.
func (c *FIFO[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge removes all entries.
func (c *FIFO[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V, c.capacity)
	c.order = c.order[:0]
}

// Stats returns the cumulative hit and miss counts.
func (c *FIFO[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
