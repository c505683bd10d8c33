// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smt

import (
	"fmt"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
)

// TreeStatistics summarizes the nodes reachable from a root.
type TreeStatistics struct {
	InternalNodes int
	Leaves        int
	// InternalNodesPerDepth counts internal nodes at each depth of the tree.
	InternalNodesPerDepth [Depth]int
}

// Nodes returns the total number of stored nodes.
func (s TreeStatistics) Nodes() int {
	return s.InternalNodes + s.Leaves
}

func (s TreeStatistics) String() string {
	return fmt.Sprintf("%d leaves, %d internal nodes", s.Leaves, s.InternalNodes)
}

// GetTreeStatistics counts the nodes reachable from the given root.
func GetTreeStatistics(store kvstore.Store, root common.Hash, hasher *Hasher) (TreeStatistics, error) {
	var res TreeStatistics
	var collect func(id common.Hash, depth int) error
	collect = func(id common.Hash, depth int) error {
		if id == hasher.EmptySubtreeHash(depth) {
			return nil
		}
		if depth == Depth {
			res.Leaves++
			return nil
		}
		payload, err := store.Get(id)
		if err != nil {
			return fmt.Errorf("%w: failed to load node %v: %w", ErrStorage, id, err)
		}
		if payload == nil {
			return fmt.Errorf("%w: missing node %v at depth %d", ErrCorruptData, id, depth)
		}
		left, right, err := DecodeInternal(payload)
		if err != nil {
			return err
		}
		res.InternalNodes++
		res.InternalNodesPerDepth[depth]++
		if err := collect(left, depth+1); err != nil {
			return err
		}
		return collect(right, depth+1)
	}
	return res, collect(root, 0)
}
