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
	"golang.org/x/exp/slices"
)

// leafNode holds sorted keys and their values.
type leafNode[K any, V any] struct {
	keys       []K
	values     []V
	capacity   int
	comparator common.Comparator[K]
}

func newLeafNode[K any, V any](capacity int, comparator common.Comparator[K]) *leafNode[K, V] {
	return &leafNode[K, V]{
		keys:       make([]K, 0, capacity+1),
		values:     make([]V, 0, capacity+1),
		capacity:   capacity,
		comparator: comparator,
	}
}

func (m *leafNode[K, V]) get(key K) (V, bool) {
	index, exists := findItem(m.keys, key, m.comparator)
	if !exists {
		var zero V
		return zero, false
	}
	return m.values[index], true
}

func (m *leafNode[K, V]) set(key K, val V) (right node[K, V], middle K, split bool, added bool) {
	index, exists := findItem(m.keys, key, m.comparator)
	if exists {
		m.values[index] = val
		return
	}
	m.keys = slices.Insert(m.keys, index, key)
	m.values = slices.Insert(m.values, index, val)
	added = true
	if len(m.keys) > m.capacity {
		right, middle = m.split()
		split = true
	}
	return
}

// split moves the upper half of the entries into a new node. The first key
// of the new node is copied up as separator.
func (m *leafNode[K, V]) split() (*leafNode[K, V], K) {
	right := newLeafNode[K, V](m.capacity, m.comparator)
	mid := len(m.keys) / 2
	right.keys = append(right.keys, m.keys[mid:]...)
	right.values = append(right.values, m.values[mid:]...)
	clear(m.values[mid:])
	m.keys = m.keys[:mid]
	m.values = m.values[:mid]
	return right, right.keys[0]
}

func (m *leafNode[K, V]) remove(key K) bool {
	index, exists := findItem(m.keys, key, m.comparator)
	if !exists {
		return false
	}
	m.keys = slices.Delete(m.keys, index, index+1)
	m.values = slices.Delete(m.values, index, index+1)
	return true
}

func (m *leafNode[K, V]) forEach(start, end *K, callback func(K, V) bool) bool {
	from := 0
	if start != nil {
		from, _ = findItem(m.keys, *start, m.comparator)
	}
	for i := from; i < len(m.keys); i++ {
		if end != nil && m.comparator.Compare(&m.keys[i], end) >= 0 {
			return false
		}
		if !callback(m.keys[i], m.values[i]) {
			return false
		}
	}
	return true
}

func (m *leafNode[K, V]) memoryFootprint(valueSize func(V) uintptr) uintptr {
	var k K
	var v V
	size := unsafe.Sizeof(*m) + uintptr(cap(m.keys))*unsafe.Sizeof(k) + uintptr(cap(m.values))*unsafe.Sizeof(v)
	for _, val := range m.values {
		size += valueSize(val)
	}
	return size
}

func (m *leafNode[K, V]) checkProperties(height *int, depth int, lower, upper *K) error {
	if *height == -1 {
		*height = depth
	}
	if *height != depth {
		return fmt.Errorf("leaf at depth %d, expected %d", depth, *height)
	}
	if len(m.keys) != len(m.values) {
		return fmt.Errorf("%d keys but %d values", len(m.keys), len(m.values))
	}
	return checkKeys(m.keys, lower, upper, m.comparator)
}

func (m *leafNode[K, V]) String() string {
	return fmt.Sprintf("%v", m.keys)
}

// findItem locates the key in the sorted list. If it is missing, the
// returned index is the position where it would be inserted.
func findItem[K any](keys []K, key K, comparator common.Comparator[K]) (int, bool) {
	return slices.BinarySearchFunc(keys, key, func(a, b K) int {
		return comparator.Compare(&a, &b)
	})
}

func checkKeys[K any](keys []K, lower, upper *K, comparator common.Comparator[K]) error {
	for i := range keys {
		if i > 0 && comparator.Compare(&keys[i-1], &keys[i]) >= 0 {
			return fmt.Errorf("keys not sorted: %v", keys)
		}
		if lower != nil && comparator.Compare(&keys[i], lower) < 0 {
			return fmt.Errorf("key %v below lower bound %v", keys[i], *lower)
		}
		if upper != nil && comparator.Compare(&keys[i], upper) >= 0 {
			return fmt.Errorf("key %v not below upper bound %v", keys[i], *upper)
		}
	}
	return nil
}
