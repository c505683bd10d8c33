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
	"bytes"
	"testing"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
)

func TestStore_ContentSurvivesReopening(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	entries := []kvstore.Entry{
		{Id: common.Hash{1}, Payload: []byte{1}},
		{Id: common.Hash{2}, Payload: []byte{2, 2}},
	}
	if err := s.SetBatch(entries); err != nil {
		t.Fatalf("failed to set batch: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	s, err = OpenStore(dir)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()
	for _, entry := range entries {
		got, err := s.Get(entry.Id)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if !bytes.Equal(entry.Payload, got) {
			t.Errorf("unexpected payload, wanted %v, got %v", entry.Payload, got)
		}
	}
}

func TestStore_ReturnedPayloadIsOwnedByCaller(t *testing.T) {
	s, err := OpenInMemoryStore()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()
	if err := s.Set(common.Hash{1}, []byte{1, 2, 3}); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	got, err := s.Get(common.Hash{1})
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	got[0] = 42
	again, _ := s.Get(common.Hash{1})
	if again[0] != 1 {
		t.Errorf("store content modified through returned slice")
	}
}
