// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"fmt"
	"testing"
)

func TestGetPut(t *testing.T) {
	c := New(10)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	c.Put("question", "answer")
	value, ok := c.Get("question")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if value != "answer" {
		t.Errorf("Get = %q, expected %q", value, "answer")
	}
}

func TestExactMatchOnly(t *testing.T) {
	c := New(10)
	c.Put("Hello", "cached")

	// No normalization: case and whitespace variants must miss.
	for _, key := range []string{"hello", "Hello ", " Hello", "HELLO"} {
		if _, ok := c.Get(key); ok {
			t.Errorf("Get(%q) hit, expected miss (exact-match keys only)", key)
		}
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	const capacity = 100
	c := New(capacity)

	for i := 0; i < capacity*2; i++ {
		c.Put(fmt.Sprintf("key-%d", i), "value")
		if c.Len() > capacity {
			t.Fatalf("cache grew to %d entries, capacity is %d", c.Len(), capacity)
		}
	}
	if c.Len() != capacity {
		t.Errorf("cache has %d entries, expected %d", c.Len(), capacity)
	}
}

// TestFIFOEviction verifies eviction is by insertion order, not access order.
// Probing (reading) the oldest entry must not save it from eviction.
func TestFIFOEviction(t *testing.T) {
	c := New(3)

	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("c", "3")

	// Access "a" repeatedly; under LRU this would protect it.
	for i := 0; i < 5; i++ {
		if _, ok := c.Get("a"); !ok {
			t.Fatal("expected hit on a")
		}
	}

	// Inserting the 4th entry must evict exactly "a", the earliest-inserted.
	c.Put("d", "4")

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry a should have been evicted (FIFO, not LRU)")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q should still be cached", key)
		}
	}
}

func TestRePutKeepsInsertionPosition(t *testing.T) {
	c := New(2)

	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("a", "updated") // update, not re-insert

	if v, _ := c.Get("a"); v != "updated" {
		t.Errorf("Get(a) = %q, expected updated", v)
	}

	// "a" is still the oldest insertion, so it is evicted next.
	c.Put("c", "3")
	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted; re-put must not refresh insertion order")
	}
}

func TestClear(t *testing.T) {
	c := New(5)
	c.Put("a", "1")
	c.Put("b", "2")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, expected 0", c.Len())
	}
	// Reusable after clear, with eviction still working.
	for i := 0; i < 10; i++ {
		c.Put(fmt.Sprintf("k%d", i), "v")
	}
	if c.Len() != 5 {
		t.Errorf("Len = %d, expected 5", c.Len())
	}
}

func TestStats(t *testing.T) {
	c := New(5)
	c.Put("a", "1")

	c.Get("a")       // hit
	c.Get("a")       // hit
	c.Get("missing") // miss

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("stats = %d hits / %d misses, expected 2/1", stats.Hits, stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("stats.Entries = %d, expected 1", stats.Entries)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("stats.HitRate = %f, expected ~0.667", stats.HitRate)
	}
}
