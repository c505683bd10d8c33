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

import "bytes"

// Comparator defines a total order on values of type K.
type Comparator[K any] interface {
	// Compare returns a negative number if a < b, zero if a == b and a positive number otherwise.
	Compare(a, b *K) int
}

type HashComparator struct{}

func (HashComparator) Compare(a, b *Hash) int {
	return a.Compare(b)
}

type KeyComparator struct{}

func (KeyComparator) Compare(a, b *Key) int {
	return a.Compare(b)
}

type Uint32Comparator struct{}

func (Uint32Comparator) Compare(a, b *uint32) int {
	if *a > *b {
		return 1
	}
	if *a < *b {
		return -1
	}
	return 0
}

func (h *Hash) Compare(other *Hash) int {
	return bytes.Compare(h[:], other[:])
}

func (k *Key) Compare(other *Key) int {
	return bytes.Compare(k[:], other[:])
}
