// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kvstore

//go:generate mockgen -source kvstore.go -destination kvstore_mocks.go -package kvstore

import (
	"github.com/Fantom-foundation/smt/common"
)

// Store is a content-addressed key-value storage for tree nodes. Payloads
// are stored under the hash identifying them. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the payload stored under the id, or nil if the id was never
	// written or has been deleted. The returned payload is owned by the
	// caller; modifying it does not affect the stored content.
	Get(id common.Hash) ([]byte, error)

	// Set stores the payload under the id, replacing any previous payload.
	Set(id common.Hash, payload []byte) error

	// SetBatch stores all entries. Backends with transactional support apply
	// the batch atomically; otherwise a failure may leave a prefix of the
	// batch written, which is harmless for content-addressed data.
	SetBatch(entries []Entry) error

	// Delete removes the id. Deleting a missing id is not an error.
	Delete(id common.Hash) error

	// provides the size of the store in memory in bytes
	common.MemoryFootprintProvider

	common.FlushAndCloser
}

// Entry is a single element of a batch update.
type Entry struct {
	Id      common.Hash
	Payload []byte
}

const (
	// ErrClosed is returned by stores used after Close.
	ErrClosed = common.ConstError("store closed")
	// ErrBatchTooLarge is returned when a backend cannot apply a batch in one transaction.
	ErrBatchTooLarge = common.ConstError("batch too large")
)
