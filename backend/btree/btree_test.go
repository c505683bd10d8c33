// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package btree

import (
	"math/rand"
	"testing"

	"github.com/Fantom-foundation/smt/common"
	"golang.org/x/exp/slices"
)

func newTestMap(capacity int) *Map[uint32, uint32] {
	return NewMap[uint32, uint32](capacity, common.Uint32Comparator{})
}

func getKeys(m *Map[uint32, uint32]) []uint32 {
	res := []uint32{}
	m.ForEach(func(k, _ uint32) bool {
		res = append(res, k)
		return true
	})
	return res
}

func getRange(m *Map[uint32, uint32], start, end uint32) []uint32 {
	res := []uint32{}
	m.ForEachInRange(start, end, func(k, _ uint32) bool {
		res = append(res, k)
		return true
	})
	return res
}

func TestMap_SetSortedAndUnsorted(t *testing.T) {
	inputs := map[string][]uint32{
		"sorted":   {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"unsorted": {8, 3, 5, 6, 7, 4, 9, 10, 2, 1},
		"reversed": {10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
	}
	for name, keys := range inputs {
		t.Run(name, func(t *testing.T) {
			m := newTestMap(3)
			for _, key := range keys {
				m.Set(key, key*10)
			}
			if err := m.checkProperties(); err != nil {
				t.Fatalf("invalid tree: %v", err)
			}
			if want, got := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, getKeys(m); !slices.Equal(want, got) {
				t.Errorf("unexpected keys, wanted %v, got %v", want, got)
			}
			for _, key := range keys {
				if val, exists := m.Get(key); !exists || val != key*10 {
					t.Errorf("unexpected value for key %d: %d/%t", key, val, exists)
				}
			}
			if m.Len() != len(keys) {
				t.Errorf("unexpected size %d", m.Len())
			}
		})
	}
}

func TestMap_SetOverridesExistingValue(t *testing.T) {
	m := newTestMap(3)
	for i := uint32(0); i < 20; i++ {
		m.Set(i, 1)
	}
	for i := uint32(0); i < 20; i++ {
		m.Set(i, 2)
	}
	if m.Len() != 20 {
		t.Errorf("overriding values should not change the size, got %d", m.Len())
	}
	for i := uint32(0); i < 20; i++ {
		if val, _ := m.Get(i); val != 2 {
			t.Errorf("value of %d not updated", i)
		}
	}
}

func TestMap_GetRange(t *testing.T) {
	m := newTestMap(3)
	for _, key := range []uint32{1, 4, 7, 9, 13, 15, 21, 26, 27, 29, 51, 52, 54} {
		m.Set(key, key)
	}

	tests := []struct {
		start, end uint32
		want       []uint32
	}{
		{2, 4, []uint32{}},
		{1, 8, []uint32{1, 4, 7}},
		{9, 27, []uint32{9, 13, 15, 21, 26}},
		{0, 100, []uint32{1, 4, 7, 9, 13, 15, 21, 26, 27, 29, 51, 52, 54}},
		{52, 53, []uint32{52}},
		{60, 100, []uint32{}},
	}
	for _, test := range tests {
		if got := getRange(m, test.start, test.end); !slices.Equal(test.want, got) {
			t.Errorf("unexpected range [%d, %d), wanted %v, got %v", test.start, test.end, test.want, got)
		}
	}
}

func TestMap_ForEachCanBeStopped(t *testing.T) {
	m := newTestMap(3)
	for i := uint32(0); i < 100; i++ {
		m.Set(i, i)
	}
	count := 0
	m.ForEach(func(_, _ uint32) bool {
		count++
		return count < 10
	})
	if count != 10 {
		t.Errorf("iteration should have stopped after 10 entries, got %d", count)
	}
}

func TestMap_Remove(t *testing.T) {
	m := newTestMap(3)
	for i := uint32(0); i < 50; i++ {
		m.Set(i, i)
	}
	for i := uint32(0); i < 50; i += 2 {
		if !m.Remove(i) {
			t.Errorf("key %d should have been removed", i)
		}
	}
	if m.Remove(0) {
		t.Errorf("removing a missing key should report false")
	}
	if err := m.checkProperties(); err != nil {
		t.Fatalf("invalid tree: %v", err)
	}
	if m.Len() != 25 {
		t.Errorf("unexpected size %d", m.Len())
	}
	for i := uint32(0); i < 50; i++ {
		_, exists := m.Get(i)
		if want := i%2 == 1; want != exists {
			t.Errorf("unexpected presence of %d, wanted %t", i, want)
		}
	}

	for i := uint32(0); i < 50; i += 2 {
		m.Set(i, i)
	}
	if err := m.checkProperties(); err != nil {
		t.Fatalf("invalid tree after re-insert: %v", err)
	}
	if m.Len() != 50 {
		t.Errorf("unexpected size %d", m.Len())
	}
}

func TestMap_RandomOperationsMatchReference(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, capacity := range []int{2, 3, 8, 64} {
		m := newTestMap(capacity)
		reference := map[uint32]uint32{}
		for i := 0; i < 5000; i++ {
			key := uint32(r.Intn(1000))
			if r.Intn(3) == 0 {
				_, present := reference[key]
				delete(reference, key)
				if got := m.Remove(key); got != present {
					t.Fatalf("unexpected removal result for %d: %t", key, got)
				}
			} else {
				reference[key] = uint32(i)
				m.Set(key, uint32(i))
			}
		}
		if err := m.checkProperties(); err != nil {
			t.Fatalf("invalid tree with capacity %d: %v", capacity, err)
		}
		if m.Len() != len(reference) {
			t.Errorf("unexpected size %d, wanted %d", m.Len(), len(reference))
		}
		for key, want := range reference {
			if got, exists := m.Get(key); !exists || got != want {
				t.Errorf("unexpected value for %d: %d/%t", key, got, exists)
			}
		}
		keys := getKeys(m)
		if !slices.IsSorted(keys) || len(keys) != len(reference) {
			t.Errorf("iteration not complete or not ordered")
		}
	}
}

func TestMap_MemoryFootprintIncludesValues(t *testing.T) {
	m := NewMap[uint32, []byte](8, common.Uint32Comparator{})
	size := func(b []byte) uintptr { return uintptr(cap(b)) }
	empty := m.GetMemoryFootprint(size).Total()
	for i := uint32(0); i < 100; i++ {
		m.Set(i, make([]byte, 100))
	}
	if got := m.GetMemoryFootprint(size).Total(); got < empty+100*100 {
		t.Errorf("footprint too small: %d", got)
	}
}
