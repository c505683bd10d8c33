// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
)

// Store is a write-through LRU cache in front of another kvstore.Store.
// Payloads are only cached after the wrapped store accepted them, so the
// cache never holds content the wrapped store lacks.
type Store struct {
	store     kvstore.Store
	cache     *common.LruCache[common.Hash, []byte]
	deletions uint64 // guarded by mu
	mu        sync.Mutex
	hits      atomic.Uint64
	misses    atomic.Uint64
}

// NewStore wraps the given store with a cache of the given number of payloads.
func NewStore(store kvstore.Store, capacity int) *Store {
	return &Store{
		store: store,
		cache: common.NewLruCache[common.Hash, []byte](capacity),
	}
}

func (s *Store) Get(id common.Hash) ([]byte, error) {
	s.mu.Lock()
	payload, found := s.cache.Get(id)
	deletions := s.deletions
	s.mu.Unlock()
	if found {
		s.hits.Add(1)
		return append([]byte(nil), payload...), nil
	}
	s.misses.Add(1)

	payload, err := s.store.Get(id)
	if err != nil || payload == nil {
		return payload, err
	}
	// A payload loaded while a deletion was in progress may be gone already.
	s.mu.Lock()
	if s.deletions == deletions {
		s.cache.Set(id, append([]byte(nil), payload...))
	}
	s.mu.Unlock()
	return payload, nil
}

func (s *Store) Set(id common.Hash, payload []byte) error {
	if err := s.store.Set(id, payload); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache.Set(id, append([]byte(nil), payload...))
	s.mu.Unlock()
	return nil
}

func (s *Store) SetBatch(entries []kvstore.Entry) error {
	if err := s.store.SetBatch(entries); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.cache.Set(entry.Id, append([]byte(nil), entry.Payload...))
	}
	return nil
}

func (s *Store) Delete(id common.Hash) error {
	err := s.store.Delete(id)
	s.mu.Lock()
	s.cache.Remove(id)
	s.deletions++
	s.mu.Unlock()
	return err
}

func (s *Store) Flush() error {
	return s.store.Flush()
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.cache.Clear()
	s.mu.Unlock()
	return s.store.Close()
}

// HitRatio returns the fraction of Get calls served by the cache.
func (s *Store) HitRatio() float64 {
	hits, misses := s.hits.Load(), s.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	s.mu.Lock()
	cacheFootprint := s.cache.GetDynamicMemoryFootprint(func(payload []byte) uintptr {
		return uintptr(cap(payload))
	})
	s.mu.Unlock()
	cacheFootprint.SetNote(fmt.Sprintf("hit ratio %.2f", s.HitRatio()))
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("cache", cacheFootprint)
	mf.AddChild("store", s.store.GetMemoryFootprint())
	return mf
}
