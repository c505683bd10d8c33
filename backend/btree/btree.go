// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package btree

import (
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/smt/common"
)

// Map is an ordered map implemented as a B+-tree. Entries are kept in the
// leaves, inner nodes only hold separator keys. Nodes are split when they
// exceed their capacity; removals do not merge nodes, underfull nodes stay in
// place until they are refilled.
type Map[K any, V any] struct {
	root         node[K, V]
	size         int
	nodeCapacity int
	comparator   common.Comparator[K]
}

// NewMap creates an empty map with the given node capacity. Capacities
// below 2 are raised to 2.
func NewMap[K any, V any](nodeCapacity int, comparator common.Comparator[K]) *Map[K, V] {
	if nodeCapacity < 2 {
		nodeCapacity = 2
	}
	return &Map[K, V]{
		root:         newLeafNode[K, V](nodeCapacity, comparator),
		nodeCapacity: nodeCapacity,
		comparator:   comparator,
	}
}

// Get returns the value stored for the key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.root.get(key)
}

// Set associates the value with the key, replacing a previous value.
func (m *Map[K, V]) Set(key K, val V) {
	right, middle, split, added := m.root.set(key, val)
	if added {
		m.size++
	}
	if split {
		m.root = initInnerNode[K, V](m.root, right, middle, m.nodeCapacity, m.comparator)
	}
}

// Remove deletes the key and reports whether it was present.
func (m *Map[K, V]) Remove(key K) bool {
	removed := m.root.remove(key)
	if removed {
		m.size--
	}
	return removed
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.size
}

// ForEach visits all entries in key order until the callback returns false.
func (m *Map[K, V]) ForEach(callback func(K, V) bool) {
	m.root.forEach(nil, nil, callback)
}

// ForEachInRange visits the entries with keys in [start, end) in key order
// until the callback returns false.
func (m *Map[K, V]) ForEachInRange(start, end K, callback func(K, V) bool) {
	m.root.forEach(&start, &end, callback)
}

func (m *Map[K, V]) String() string {
	return fmt.Sprintf("%v", m.root)
}

// GetMemoryFootprint provides the size of the map, where the size of
// referenced value content is computed by the given function.
func (m *Map[K, V]) GetMemoryFootprint(valueSize func(V) uintptr) *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*m))
	mf.AddChild("nodes", common.NewMemoryFootprint(m.root.memoryFootprint(valueSize)))
	return mf
}

func (m *Map[K, V]) checkProperties() error {
	height := -1
	return m.root.checkProperties(&height, 0, nil, nil)
}
