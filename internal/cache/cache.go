// Package cache holds the per-session read-through caches.
package cache

import (
	"context"
	"sync"
)

// Cache is a typed map with read-through fetching. Errors are never cached.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	epoch   uint64

	// pending counts fetches in flight per key. gens only holds keys that
	// are pending and is pruned when the last fetch for a key returns.
	pending map[K]int
	gens    map[K]uint64
}

// New creates an empty cache
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]V),
		pending: make(map[K]int),
		gens:    make(map[K]uint64),
	}
}

// Get returns the cached value for key
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores value under key
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// GetOrFetch returns the cached value or calls fetch and stores its result.
// A result is dropped if key was invalidated, or the cache cleared, while
// fetch was running.
func (c *Cache[K, V]) GetOrFetch(ctx context.Context, key K, fetch func(context.Context) (V, error)) (V, error) {
	c.mu.RLock()
	if v, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.pending[key]++
	gen, epoch := c.gens[key], c.epoch
	c.mu.Unlock()

	v, err := fetch(ctx)

	c.mu.Lock()
	if err == nil && c.gens[key] == gen && c.epoch == epoch {
		c.entries[key] = v
	}
	if c.pending[key]--; c.pending[key] == 0 {
		delete(c.pending, key)
		delete(c.gens, key)
	}
	c.mu.Unlock()

	if err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}

// Invalidate drops the given keys and any fetch for them still in flight
func (c *Cache[K, V]) Invalidate(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		if c.pending[k] > 0 {
			c.gens[k]++
		}
	}
}

// InvalidateFunc drops every cached or in-flight key for which match
// returns true
func (c *Cache[K, V]) InvalidateFunc(match func(K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
		}
	}
	for k := range c.pending {
		if match(k) {
			c.gens[k]++
		}
	}
}

// Clear drops everything
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]V)
	c.epoch++
}

// Len returns the number of cached entries
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
