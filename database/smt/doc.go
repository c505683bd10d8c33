// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package smt implements a sparse Merkle tree over 32-byte keys and values.
//
// The tree covers a virtual address space of 2^256 leaf slots. Only paths
// leading to non-empty leaves are materialized in a content-addressed
// kvstore.Store; every other subtree is represented by a precomputed
// empty-subtree hash. Keys are navigated most significant bit first, a 0 bit
// selecting the left child.
//
// Leaves hash as H(0x00 || key || value), internal nodes as
// H(0x01 || left || right). An empty leaf slot is the all-zero hash and the
// empty subtree at depth d is E(d) = H(0x01 || E(d+1) || E(d+1)).
//
// Updates write all new nodes of a path in one batch before the root is
// switched, so a failed update leaves the previous root intact. Proofs carry
// all 256 siblings and can be encoded in a compact form omitting siblings
// that equal the empty subtree hash of their level.
package smt
