// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"sync"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
)

// Store is an in-memory kvstore.Store backed by a hash map.
type Store struct {
	data   map[common.Hash][]byte
	size   uintptr // sum of payload lengths
	closed bool
	mu     sync.RWMutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: map[common.Hash][]byte{}}
}

func (s *Store) Get(id common.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kvstore.ErrClosed
	}
	payload, found := s.data[id]
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
	s.set(id, payload)
	return nil
}

// SetBatch applies all entries under a single lock, so readers observe
// either none or all of them.
func (s *Store) SetBatch(entries []kvstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kvstore.ErrClosed
	}
	for _, entry := range entries {
		s.set(entry.Id, entry.Payload)
	}
	return nil
}

func (s *Store) set(id common.Hash, payload []byte) {
	if old, exists := s.data[id]; exists {
		s.size -= uintptr(len(old))
	}
	s.data[id] = append([]byte(nil), payload...)
	s.size += uintptr(len(payload))
}

func (s *Store) Delete(id common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kvstore.ErrClosed
	}
	if old, exists := s.data[id]; exists {
		s.size -= uintptr(len(old))
		delete(s.data, id)
	}
	return nil
}

// Len returns the number of stored payloads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Flush is a no-op for the in-memory store.
func (s *Store) Flush() error {
	return nil
}

// Close releases the content of the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	s.size = 0
	return nil
}

// GetMemoryFootprint provides the size of the store in memory in bytes.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entrySize := common.GetHashSize() + unsafe.Sizeof([]byte(nil))
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("data", common.NewMemoryFootprint(uintptr(len(s.data))*entrySize+s.size))
	return mf
}
