// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/backend/kvstore/badger"
	"github.com/Fantom-foundation/smt/backend/kvstore/gethdb"
	"github.com/Fantom-foundation/smt/backend/kvstore/ldb"
	memstore "github.com/Fantom-foundation/smt/backend/kvstore/memory"
	"github.com/Fantom-foundation/smt/backend/kvstore/ordered"
	"github.com/Fantom-foundation/smt/backend/kvstore/pebble"
	"github.com/Fantom-foundation/smt/backend/kvstore/sqlite"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/pbnjay/memory"
)

// backend describes a storage backend trees can be placed on.
type backend struct {
	Name       string
	Persistent bool
	open       func(dir string) (kvstore.Store, error)
}

var backends = []backend{
	{
		Name:       "leveldb",
		Persistent: true,
		open: func(dir string) (kvstore.Store, error) {
			return ldb.OpenStore(filepath.Join(dir, "leveldb"), nil)
		},
	},
	{
		Name:       "badger",
		Persistent: true,
		open: func(dir string) (kvstore.Store, error) {
			return badger.OpenStore(filepath.Join(dir, "badger"))
		},
	},
	{
		Name:       "pebble",
		Persistent: true,
		open: func(dir string) (kvstore.Store, error) {
			return pebble.OpenStore(filepath.Join(dir, "pebble"))
		},
	},
	{
		Name:       "sqlite",
		Persistent: true,
		open: func(dir string) (kvstore.Store, error) {
			return sqlite.OpenStore(filepath.Join(dir, "nodes.sqlite"))
		},
	},
	{
		Name:       "geth-leveldb",
		Persistent: true,
		open: func(dir string) (kvstore.Store, error) {
			db, err := leveldb.New(filepath.Join(dir, "geth"), 16, 16, "", false)
			if err != nil {
				return nil, err
			}
			return gethdb.NewStore(db, gethdb.NodePrefix), nil
		},
	},
	{
		Name: "memory",
		open: func(string) (kvstore.Store, error) {
			return memstore.NewStore(), nil
		},
	},
	{
		Name: "ordered",
		open: func(string) (kvstore.Store, error) {
			return ordered.NewStore(), nil
		},
	},
}

func getBackendByName(name string) (backend, error) {
	for _, b := range backends {
		if b.Name == name {
			return b, nil
		}
	}
	return backend{}, fmt.Errorf("unknown backend %q, supported: %s", name, strings.Join(getBackendNames(), ", "))
}

func getBackendNames() []string {
	res := make([]string, 0, len(backends))
	for _, b := range backends {
		res = append(res, b.Name)
	}
	return res
}

// cacheEntrySize is the approximate memory used per cached node payload,
// including the LRU bookkeeping.
const cacheEntrySize = 256

// getDefaultCacheCapacity sizes the node cache to use a small fraction of
// the physical memory of the machine.
func getDefaultCacheCapacity() int {
	const (
		minCapacity = 1 << 10
		maxCapacity = 1 << 24
	)
	capacity := memory.TotalMemory() / 16 / cacheEntrySize
	if capacity < minCapacity {
		return minCapacity
	}
	if capacity > maxCapacity {
		return maxCapacity
	}
	return int(capacity)
}
