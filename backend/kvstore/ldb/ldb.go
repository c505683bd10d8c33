// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// TableSpace divides a LevelDB instance into spaces by prefixing keys, so
// that several trees may share one database.
type TableSpace byte

// NodeTableSpace is the default table space of tree nodes.
const NodeTableSpace TableSpace = 'N'

// dbKey is the table space prefix followed by the node id.
type dbKey [1 + common.HashSize]byte

func toDbKey(t TableSpace, id common.Hash) dbKey {
	var key dbKey
	key[0] = byte(t)
	copy(key[1:], id[:])
	return key
}

// Store is a kvstore.Store persisting payloads in LevelDB.
type Store struct {
	db      *leveldb.DB
	table   TableSpace
	options *opt.Options
	owned   bool
	closed  atomic.Bool
}

// OpenStore opens or creates a LevelDB database in the given directory. The
// database is closed together with the store.
func OpenStore(path string, options *opt.Options) (*Store, error) {
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB in %s: %w", path, err)
	}
	return &Store{db: db, table: NodeTableSpace, options: options, owned: true}, nil
}

// NewStore creates a store on an already opened database using the given
// table space. The database is not closed by the store.
func NewStore(db *leveldb.DB, table TableSpace) *Store {
	return &Store{db: db, table: table}
}

func (s *Store) Get(id common.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, kvstore.ErrClosed
	}
	key := toDbKey(s.table, id)
	payload, err := s.db.Get(key[:], nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return payload, err
}

func (s *Store) Set(id common.Hash, payload []byte) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	key := toDbKey(s.table, id)
	return s.db.Put(key[:], payload, nil)
}

// SetBatch writes all entries in a single atomic LevelDB batch.
func (s *Store) SetBatch(entries []kvstore.Entry) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	batch := new(leveldb.Batch)
	for _, entry := range entries {
		key := toDbKey(s.table, entry.Id)
		batch.Put(key[:], entry.Payload)
	}
	return s.db.Write(batch, nil)
}

func (s *Store) Delete(id common.Hash) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	key := toDbKey(s.table, id)
	return s.db.Delete(key[:], nil)
}

// Flush is a no-op; LevelDB persists writes through its journal.
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
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// GetMemoryFootprint provides the size of LevelDB's write buffer and block cache.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	if s.owned {
		mf.AddChild("writeBuffer", common.NewMemoryFootprint(uintptr(s.options.GetWriteBuffer())))
		mf.AddChild("blockCache", common.NewMemoryFootprint(uintptr(s.options.GetBlockCacheCapacity())))
	}
	return mf
}
