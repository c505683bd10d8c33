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

// innerNode routes lookups to its children. All keys of children[i] are
// below keys[i], all keys of children[i+1] are equal to or above keys[i].
type innerNode[K any, V any] struct {
	keys       []K
	children   []node[K, V]
	capacity   int
	comparator common.Comparator[K]
}

func newInnerNode[K any, V any](capacity int, comparator common.Comparator[K]) *innerNode[K, V] {
	return &innerNode[K, V]{
		keys:       make([]K, 0, capacity+1),
		children:   make([]node[K, V], 0, capacity+2),
		capacity:   capacity,
		comparator: comparator,
	}
}

// initInnerNode creates a new root above a node that has just been split.
func initInnerNode[K any, V any](left, right node[K, V], middle K, capacity int, comparator common.Comparator[K]) *innerNode[K, V] {
	res := newInnerNode[K, V](capacity, comparator)
	res.keys = append(res.keys, middle)
	res.children = append(res.children, left, right)
	return res
}

func (m *innerNode[K, V]) childIndex(key K) int {
	index, exists := findItem(m.keys, key, m.comparator)
	if exists {
		return index + 1
	}
	return index
}

func (m *innerNode[K, V]) get(key K) (V, bool) {
	return m.children[m.childIndex(key)].get(key)
}

func (m *innerNode[K, V]) set(key K, val V) (right node[K, V], middle K, split bool, added bool) {
	index := m.childIndex(key)
	childRight, childMiddle, childSplit, added := m.children[index].set(key, val)
	if childSplit {
		m.keys = slices.Insert(m.keys, index, childMiddle)
		m.children = slices.Insert(m.children, index+1, childRight)
	}
	if len(m.keys) > m.capacity {
		right, middle = m.split()
		split = true
	}
	return
}

// split moves the upper half of keys and children into a new node. The
// middle key moves up to the parent.
func (m *innerNode[K, V]) split() (*innerNode[K, V], K) {
	right := newInnerNode[K, V](m.capacity, m.comparator)
	mid := len(m.keys) / 2
	middle := m.keys[mid]
	right.keys = append(right.keys, m.keys[mid+1:]...)
	right.children = append(right.children, m.children[mid+1:]...)
	clear(m.children[mid+1:])
	m.keys = m.keys[:mid]
	m.children = m.children[:mid+1]
	return right, middle
}

func (m *innerNode[K, V]) remove(key K) bool {
	return m.children[m.childIndex(key)].remove(key)
}

func (m *innerNode[K, V]) forEach(start, end *K, callback func(K, V) bool) bool {
	from := 0
	if start != nil {
		from = m.childIndex(*start)
	}
	for i := from; i < len(m.children); i++ {
		if i > 0 && end != nil && m.comparator.Compare(&m.keys[i-1], end) >= 0 {
			return false
		}
		if !m.children[i].forEach(start, end, callback) {
			return false
		}
	}
	return true
}

func (m *innerNode[K, V]) memoryFootprint(valueSize func(V) uintptr) uintptr {
	var k K
	size := unsafe.Sizeof(*m) + uintptr(cap(m.keys))*unsafe.Sizeof(k) + uintptr(cap(m.children))*unsafe.Sizeof(node[K, V](nil))
	for _, child := range m.children {
		size += child.memoryFootprint(valueSize)
	}
	return size
}

func (m *innerNode[K, V]) checkProperties(height *int, depth int, lower, upper *K) error {
	if len(m.children) != len(m.keys)+1 {
		return fmt.Errorf("inner node with %d keys has %d children", len(m.keys), len(m.children))
	}
	if err := checkKeys(m.keys, lower, upper, m.comparator); err != nil {
		return err
	}
	for i, child := range m.children {
		childLower, childUpper := lower, upper
		if i > 0 {
			childLower = &m.keys[i-1]
		}
		if i < len(m.keys) {
			childUpper = &m.keys[i]
		}
		if err := child.checkProperties(height, depth+1, childLower, childUpper); err != nil {
			return err
		}
	}
	return nil
}

func (m *innerNode[K, V]) String() string {
	return fmt.Sprintf("%v%v", m.keys, m.children)
}
