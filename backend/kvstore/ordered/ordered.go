// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ordered

import (
	"sync"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/btree"
	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
)

// nodeCapacity is the number of entries in a single B-tree node.
const nodeCapacity = 64

// Store is an in-memory kvstore.Store keeping payloads ordered by their id.
type Store struct {
	data   *btree.Map[common.Hash, []byte]
	closed bool
	mu     sync.RWMutex
}

// NewStore creates an empty ordered store.
func NewStore() *Store {
	return &Store{data: btree.NewMap[common.Hash, []byte](nodeCapacity, common.HashComparator{})}
}

func (s *Store) Get(id common.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kvstore.ErrClosed
	}
	payload, found := s.data.Get(id)
	if !found {
		return nil, nil
	}
	return append([]byte(nil), payload...), nil
}

func (s *Store) Set(id common.Hash, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kvstore.ErrClosed
	}
	s.data.Set(id, append([]byte(nil), payload...))
	return nil
}

func (s *Store) SetBatch(entries []kvstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kvstore.ErrClosed
	}
	for _, entry := range entries {
		s.data.Set(entry.Id, append([]byte(nil), entry.Payload...))
	}
	return nil
}

func (s *Store) Delete(id common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kvstore.ErrClosed
	}
	s.data.Remove(id)
	return nil
}

// Len returns the number of stored payloads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Len()
}

// ForEach visits all stored payloads in ascending id order until the
// callback returns false. The store must not be modified by the callback.
func (s *Store) ForEach(callback func(id common.Hash, payload []byte) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.data.ForEach(callback)
}

func (s *Store) Flush() error {
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = btree.NewMap[common.Hash, []byte](nodeCapacity, common.HashComparator{})
	return nil
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("data", s.data.GetMemoryFootprint(func(payload []byte) uintptr {
		return uintptr(cap(payload))
	}))
	return mf
}
