// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"unsafe"
)

// LruCache is a fixed capacity map retaining the most recently used entries.
// It is not safe for concurrent use; owners need to provide their own locking.
type LruCache[K comparable, V any] struct {
	entries  map[K]*entry[K, V]
	capacity int
	// root is a sentinel of the circular recency list; root.next is the most
	// recently used entry and root.prev the least recently used.
	root entry[K, V]
}

type entry[K comparable, V any] struct {
	key        K
	val        V
	prev, next *entry[K, V]
}

// maxPreallocatedEntries limits the space reserved for entries up front.
const maxPreallocatedEntries = 1 << 16

// NewLruCache creates a cache holding at most capacity entries. A capacity
// below one is raised to one.
func NewLruCache[K comparable, V any](capacity int) *LruCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	c := &LruCache[K, V]{
		entries:  make(map[K]*entry[K, V], min(capacity, maxPreallocatedEntries)),
		capacity: capacity,
	}
	c.root.next = &c.root
	c.root.prev = &c.root
	return c
}

// Get returns the value stored for the key and marks it as used.
func (c *LruCache[K, V]) Get(key K) (V, bool) {
	item, exists := c.entries[key]
	if !exists {
		var zero V
		return zero, false
	}
	c.moveToFront(item)
	return item.val, true
}

// Set associates the value to the key. If a new entry exceeds the capacity,
// the least recently used entry is dropped and returned.
func (c *LruCache[K, V]) Set(key K, val V) (evictedKey K, evictedValue V, evicted bool) {
	if item, exists := c.entries[key]; exists {
		item.val = val
		c.moveToFront(item)
		return
	}

	var item *entry[K, V]
	if len(c.entries) >= c.capacity {
		item = c.root.prev
		c.unlink(item)
		delete(c.entries, item.key)
		evictedKey, evictedValue, evicted = item.key, item.val, true
	} else {
		item = new(entry[K, V])
	}
	item.key = key
	item.val = val
	c.entries[key] = item
	c.pushFront(item)
	return
}

// Remove deletes the key from the cache and returns the removed value.
func (c *LruCache[K, V]) Remove(key K) (original V, exists bool) {
	item, exists := c.entries[key]
	if !exists {
		return
	}
	c.unlink(item)
	delete(c.entries, key)
	return item.val, true
}

// Len returns the number of cached entries.
func (c *LruCache[K, V]) Len() int {
	return len(c.entries)
}

// Clear drops all entries.
func (c *LruCache[K, V]) Clear() {
	c.entries = make(map[K]*entry[K, V], c.capacity)
	c.root.next = &c.root
	c.root.prev = &c.root
}

func (c *LruCache[K, V]) moveToFront(item *entry[K, V]) {
	if c.root.next == item {
		return
	}
	c.unlink(item)
	c.pushFront(item)
}

func (c *LruCache[K, V]) pushFront(item *entry[K, V]) {
	item.prev = &c.root
	item.next = c.root.next
	c.root.next.prev = item
	c.root.next = item
}

func (c *LruCache[K, V]) unlink(item *entry[K, V]) {
	item.prev.next = item.next
	item.next.prev = item.prev
	item.prev = nil
	item.next = nil
}

// GetDynamicMemoryFootprint provides the size of the cache in bytes for values
// referencing a varying amount of memory, like slices.
func (c *LruCache[K, V]) GetDynamicMemoryFootprint(valueSizeProvider func(V) uintptr) *MemoryFootprint {
	selfSize := unsafe.Sizeof(*c)
	entrySize := unsafe.Sizeof(entry[K, V]{})
	var size uintptr
	for _, item := range c.entries {
		size += entrySize + valueSizeProvider(item.val)
	}
	return NewMemoryFootprint(selfSize + size)
}
