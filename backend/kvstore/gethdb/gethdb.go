// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gethdb

import (
	"io"
	"sync/atomic"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
	"github.com/ethereum/go-ethereum/ethdb"
)

// Database is the subset of go-ethereum's key-value database interface
// required to store tree nodes. It is implemented by memorydb, leveldb and
// pebble databases of go-ethereum.
type Database interface {
	ethdb.KeyValueReader
	ethdb.KeyValueWriter
	ethdb.Batcher
	io.Closer
}

// Store adapts a go-ethereum key-value database to a kvstore.Store. Node ids
// are prefixed to share the database with other data.
type Store struct {
	db     Database
	prefix []byte
	closed atomic.Bool
}

// NodePrefix is the default prefix of node keys.
var NodePrefix = []byte("smt-")

// NewStore wraps the given database. The database is closed with the store.
func NewStore(db Database, prefix []byte) *Store {
	return &Store{db: db, prefix: append([]byte(nil), prefix...)}
}

func (s *Store) key(id common.Hash) []byte {
	res := make([]byte, 0, len(s.prefix)+len(id))
	res = append(res, s.prefix...)
	return append(res, id[:]...)
}

func (s *Store) Get(id common.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, kvstore.ErrClosed
	}
	key := s.key(id)
	// go-ethereum databases do not share a common not-found error
	found, err := s.db.Has(key)
	if err != nil || !found {
		return nil, err
	}
	return s.db.Get(key)
}

func (s *Store) Set(id common.Hash, payload []byte) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	return s.db.Put(s.key(id), payload)
}

// SetBatch collects all entries in an ethdb.Batch and writes it at once.
func (s *Store) SetBatch(entries []kvstore.Entry) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	batch := s.db.NewBatch()
	for _, entry := range entries {
		if err := batch.Put(s.key(entry.Id), entry.Payload); err != nil {
			return err
		}
	}
	return batch.Write()
}

func (s *Store) Delete(id common.Hash) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	return s.db.Delete(s.key(id))
}

func (s *Store) Flush() error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// GetMemoryFootprint only covers the adapter; go-ethereum databases do not
// report their memory usage.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*s) + uintptr(cap(s.prefix)))
}
