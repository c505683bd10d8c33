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

// node is a node of the B+-tree, either a leaf holding entries or an inner
// node holding separators and children.
type node[K any, V any] interface {
	get(key K) (V, bool)

	// set inserts or updates the key. When the node overflows, it is split
	// and the new right sibling and the separator between the two nodes are
	// returned. The added flag reports whether the key was new.
	set(key K, val V) (right node[K, V], middle K, split bool, added bool)

	// remove deletes the key and reports whether it was present.
	remove(key K) bool

	// forEach visits entries in order, limited to [start, end) when the bounds
	// are not nil. It returns false when the callback stopped the iteration.
	forEach(start, end *K, callback func(K, V) bool) bool

	memoryFootprint(valueSize func(V) uintptr) uintptr

	// checkProperties verifies that keys are sorted, within the given bounds
	// and that all leaves are at the same depth.
	checkProperties(height *int, depth int, lower, upper *K) error
}
