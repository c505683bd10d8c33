// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package badger

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
	"github.com/dgraph-io/badger/v4"
)

// Store is a kvstore.Store persisting payloads in a Badger database.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

// OpenStore opens or creates a Badger database in the given directory.
func OpenStore(path string) (*Store, error) {
	return open(badger.DefaultOptions(path))
}

// OpenInMemoryStore creates a Badger database without any disk backing.
func OpenInMemoryStore() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(options badger.Options) (*Store, error) {
	db, err := badger.Open(options.WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("failed to open Badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(id common.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, kvstore.ErrClosed
	}
	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(id[:])
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return payload, err
}

func (s *Store) Set(id common.Hash, payload []byte) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(id[:], payload)
	})
}

// SetBatch writes all entries in a single transaction. Batches exceeding
// Badger's transaction limits fail as a whole with kvstore.ErrBatchTooLarge.
func (s *Store) SetBatch(entries []kvstore.Entry) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, entry := range entries {
			if err := txn.Set(entry.Id[:], entry.Payload); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: %d entries: %w", kvstore.ErrBatchTooLarge, len(entries), err)
	}
	return err
}

func (s *Store) Delete(id common.Hash) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(id[:])
	})
}

func (s *Store) Flush() error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	if s.db.Opts().InMemory {
		return nil
	}
	return s.db.Sync()
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// GetMemoryFootprint provides the configured sizes of Badger's memtables and caches.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	opts := s.db.Opts()
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("memTables", common.NewMemoryFootprint(uintptr(opts.MemTableSize)*uintptr(opts.NumMemtables)))
	mf.AddChild("blockCache", common.NewMemoryFootprint(uintptr(opts.BlockCacheSize)))
	mf.AddChild("indexCache", common.NewMemoryFootprint(uintptr(opts.IndexCacheSize)))
	return mf
}
