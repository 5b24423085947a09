// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides the bounded response cache for text completions.
package cache

import (
	"sync"
)

// DefaultCapacity is the default number of cached responses.
const DefaultCapacity = 100

// =============================================================================
// RESPONSE CACHE
// =============================================================================

// ResponseCache is a capacity-bounded FIFO cache mapping exact input text to
// the finalized completion text. Eviction is strictly by insertion order, not
// by recency of access: a Get never reorders entries.
//
// Keys are exact-match only. No normalization, no TTL, no persistence - the
// cache lives for the process lifetime of the session that owns it.
type ResponseCache struct {
	mu       sync.Mutex
	entries  map[string]string
	order    []string // insertion order, oldest first
	capacity int

	// Statistics
	hits   int
	misses int
}

// Stats holds cache statistics.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
	HitRate float64
}

// New creates a response cache with the given capacity.
// A capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *ResponseCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ResponseCache{
		entries:  make(map[string]string, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Get returns the cached response for key, if present.
func (c *ResponseCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

// Put stores a response under key. When the cache is full the single
// oldest-inserted entry is evicted first. Re-putting an existing key updates
// the value in place without touching its insertion position.
func (c *ResponseCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = value
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = value
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string, c.capacity)
	c.order = c.order[:0]
}

// Stats returns hit/miss statistics.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := 0.0
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.entries),
		HitRate: hitRate,
	}
}
