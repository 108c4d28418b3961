// Package cache provides the memoization tables used by the generators.
//
// A Cache runs the creation function at most once per key, even when many
// goroutines miss on the same key at the same time: late callers wait for
// the in-flight creation and observe its result. Failed creations are not
// stored.
package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/eventsys/internal/metrics"
)

// Cache maps string keys to values of type V. Each entry also stores the
// metadata M it was created from, which EvictIf inspects.
type Cache[M, V any] struct {
	name    string
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]entry[M, V]
	group   singleflight.Group
}

type entry[M, V any] struct {
	meta  M
	value V
}

// New creates an empty cache. name labels the cache in metrics. m may be
// nil.
func New[M, V any](name string, m *metrics.Metrics) *Cache[M, V] {
	return &Cache[M, V]{
		name:    name,
		metrics: m,
		entries: make(map[string]entry[M, V]),
	}
}

// Get returns the value stored under key, calling create on a miss.
// Concurrent callers for the same key share a single call to create.
func (c *Cache[M, V]) Get(key string, meta M, create func() (V, error)) (V, error) {
	if v, ok := c.Peek(key); ok {
		c.metrics.CacheHit(c.name)
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight may have stored the value between the peek and
		// joining the group.
		if v, ok := c.Peek(key); ok {
			c.metrics.CacheHit(c.name)
			return v, nil
		}

		c.metrics.CacheMiss(c.name)
		v, err := create()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry[M, V]{meta: meta, value: v}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Peek returns the value stored under key without creating it.
func (c *Cache[M, V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// Put stores value under key, replacing any existing entry.
func (c *Cache[M, V]) Put(key string, meta M, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[M, V]{meta: meta, value: value}
}

// EvictIf removes every entry whose metadata satisfies stale. The scan and
// removal happen under one lock, so no insert can interleave with it.
// It returns the number of evicted entries.
func (c *Cache[M, V]) EvictIf(stale func(M) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if stale(e.meta) {
			delete(c.entries, k)
			n++
		}
	}
	c.metrics.CacheEvictions(c.name, n)
	return n
}

// Len returns the number of entries.
func (c *Cache[M, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the current keys in no particular order.
func (c *Cache[M, V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}
