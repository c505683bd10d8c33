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
	"github.com/Fantom-foundation/smt/common"
)

const (
	// ErrStorage marks failures reported by the underlying key-value store.
	ErrStorage = common.ConstError("storage error")
	// ErrCorruptData marks missing or malformed nodes reachable from a root.
	ErrCorruptData = common.ConstError("corrupt data")
	// ErrInvalidProof marks proofs that cannot be decoded or encoded.
	ErrInvalidProof = common.ConstError("invalid proof")
	// ErrConfiguration marks unusable tree configurations.
	ErrConfiguration = common.ConstError("invalid configuration")
)
