// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pebble

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Store is a kvstore.Store persisting payloads in a Pebble database.
type Store struct {
	db     *pebble.DB
	sync   *pebble.WriteOptions
	closed atomic.Bool
}

// OpenStore opens or creates a Pebble database in the given directory.
// Writes are synced to disk.
func OpenStore(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open Pebble database in %s: %w", path, err)
	}
	return &Store{db: db, sync: pebble.Sync}, nil
}

// OpenInMemoryStore creates a Pebble database on an in-memory file system.
func OpenInMemoryStore() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory Pebble database: %w", err)
	}
	return &Store{db: db, sync: pebble.NoSync}, nil
}

func (s *Store) Get(id common.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, kvstore.ErrClosed
	}
	value, closer, err := s.db.Get(id[:])
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (s *Store) Set(id common.Hash, payload []byte) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	return s.db.Set(id[:], payload, s.sync)
}

// SetBatch commits all entries as one atomic Pebble batch.
func (s *Store) SetBatch(entries []kvstore.Entry) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, entry := range entries {
		if err := batch.Set(entry.Id[:], entry.Payload, nil); err != nil {
			return err
		}
	}
	return batch.Commit(s.sync)
}

func (s *Store) Delete(id common.Hash) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	return s.db.Delete(id[:], s.sync)
}

// Flush writes the memtable to disk.
func (s *Store) Flush() error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	return s.db.Flush()
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// GetMemoryFootprint provides the current sizes of Pebble's memtables and block cache.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	if s.closed.Load() {
		return mf
	}
	metrics := s.db.Metrics()
	mf.AddChild("memTables", common.NewMemoryFootprint(uintptr(metrics.MemTable.Size)))
	mf.AddChild("blockCache", common.NewMemoryFootprint(uintptr(metrics.BlockCache.Size)))
	return mf
}
