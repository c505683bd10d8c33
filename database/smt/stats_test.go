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
	"errors"
	"testing"

	"github.com/Fantom-foundation/smt/backend/kvstore/memory"
	"github.com/Fantom-foundation/smt/common"
)

func TestStatistics_EmptyTreeHasNoNodes(t *testing.T) {
	hasher := newTestHasher(t, Sha256Hashing)
	stats, err := GetTreeStatistics(memory.NewStore(), hasher.EmptyRoot(), hasher)
	if err != nil {
		t.Fatalf("failed to collect statistics: %v", err)
	}
	if stats.Nodes() != 0 {
		t.Errorf("empty tree should have no nodes, got %v", stats)
	}
}

func TestStatistics_SingleKeyHasOneNodePerLevel(t *testing.T) {
	tree, store := newTestTree(t, Sha256Config)
	mustUpdate(t, tree, common.Key{0x12}, common.Value{1})
	stats, err := GetTreeStatistics(store, tree.Root(), tree.Hasher())
	if err != nil {
		t.Fatalf("failed to collect statistics: %v", err)
	}
	if stats.Leaves != 1 || stats.InternalNodes != Depth {
		t.Errorf("unexpected statistics: %v", stats)
	}
	for depth, count := range stats.InternalNodesPerDepth {
		if count != 1 {
			t.Errorf("unexpected number of nodes at depth %d: %d", depth, count)
		}
	}
}

func TestStatistics_KeysSplittingAtRootShareOnlyTheRoot(t *testing.T) {
	tree, store := newTestTree(t, Sha256Config)
	mustUpdate(t, tree, common.Key{0x00}, common.Value{1})
	mustUpdate(t, tree, common.Key{0x80}, common.Value{2})
	stats, err := GetTreeStatistics(store, tree.Root(), tree.Hasher())
	if err != nil {
		t.Fatalf("failed to collect statistics: %v", err)
	}
	if want, got := 1+2*(Depth-1), stats.InternalNodes; want != got {
		t.Errorf("unexpected number of internal nodes, wanted %d, got %d", want, got)
	}
	if stats.Leaves != 2 {
		t.Errorf("unexpected number of leaves: %d", stats.Leaves)
	}
	if stats.InternalNodesPerDepth[0] != 1 || stats.InternalNodesPerDepth[1] != 2 {
		t.Errorf("unexpected node distribution: %v", stats.InternalNodesPerDepth[:2])
	}
	if want, got := "2 leaves, 511 internal nodes", stats.String(); want != got {
		t.Errorf("unexpected string, wanted %q, got %q", want, got)
	}
}

func TestStatistics_MissingNodesAreReported(t *testing.T) {
	tree, _ := newTestTree(t, Sha256Config)
	root := mustUpdate(t, tree, common.Key{1}, common.Value{1})
	if _, err := GetTreeStatistics(memory.NewStore(), root, tree.Hasher()); !errors.Is(err, ErrCorruptData) {
		t.Errorf("expected corrupt data error, got %v", err)
	}
}
