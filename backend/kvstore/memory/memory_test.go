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
	"testing"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
)

func TestStore_LenTracksDistinctIds(t *testing.T) {
	s := NewStore()
	if s.Len() != 0 {
		t.Fatalf("new store should be empty")
	}
	if err := s.SetBatch([]kvstore.Entry{{Id: common.Hash{1}, Payload: []byte{1}}, {Id: common.Hash{2}, Payload: []byte{2}}}); err != nil {
		t.Fatalf("failed to set batch: %v", err)
	}
	if err := s.Set(common.Hash{1}, []byte{3}); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if want, got := 2, s.Len(); want != got {
		t.Errorf("unexpected size, wanted %d, got %d", want, got)
	}
	if err := s.Delete(common.Hash{2}); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if want, got := 1, s.Len(); want != got {
		t.Errorf("unexpected size, wanted %d, got %d", want, got)
	}
}

func TestStore_PayloadsAreCopied(t *testing.T) {
	s := NewStore()
	payload := []byte{1, 2, 3}
	if err := s.Set(common.Hash{1}, payload); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	payload[0] = 9
	got, err := s.Get(common.Hash{1})
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if got[0] != 1 {
		t.Errorf("store content was modified through caller's slice")
	}
}

func TestStore_FootprintFollowsContent(t *testing.T) {
	s := NewStore()
	before := s.GetMemoryFootprint().Total()
	for i := 0; i < 100; i++ {
		if err := s.Set(common.Hash{byte(i)}, make([]byte, 65)); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
	}
	full := s.GetMemoryFootprint().Total()
	if full < before+100*65 {
		t.Errorf("footprint does not cover payloads: %d -> %d", before, full)
	}
	for i := 0; i < 100; i++ {
		if err := s.Delete(common.Hash{byte(i)}); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
	}
	if got := s.GetMemoryFootprint().Total(); got != before {
		t.Errorf("footprint not released, wanted %d, got %d", before, got)
	}
}
