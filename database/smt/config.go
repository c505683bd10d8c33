// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smt

import (
	"github.com/ethereum/go-ethereum/log"
)

// Config defines the options for creating or opening a tree.
type Config struct {
	// A descriptive name for this configuration. It has no effect except for
	// logging and debugging purposes.
	Name string

	// The hashing algorithm used for digesting nodes. Trees need to be
	// opened with the algorithm they have been created with.
	Hashing HashAlgorithm

	// If enabled, nodes of an old path are recorded after an update switched
	// the root to the new path and deleted by Tree.Prune. Old roots become
	// unusable once pruned. Pruning requires the store to be used by a single
	// tree only.
	Prune bool

	// The number of node payloads kept in a read cache in front of the
	// store. Zero disables the cache.
	CacheCapacity int

	// The logger to be used by the tree. If nil, nothing is logged.
	Logger log.Logger
}

var Sha256Config = Config{
	Name:    "Sha256",
	Hashing: Sha256Hashing,
}

var Keccak256Config = Config{
	Name:    "Keccak256",
	Hashing: Keccak256Hashing,
}

var Sha256PruningConfig = Config{
	Name:          "Sha256-Pruning",
	Hashing:       Sha256Hashing,
	Prune:         true,
	CacheCapacity: 1 << 16,
}

var Blake2bConfig = Config{
	Name:    "Blake2b",
	Hashing: Blake2bHashing,
}

var allConfigs = []Config{
	Sha256Config, Keccak256Config, Sha256PruningConfig, Blake2bConfig,
}

// GetConfigByName attempts to locate a configuration with the given name.
func GetConfigByName(name string) (Config, bool) {
	for _, config := range allConfigs {
		if config.Name == name {
			return config, true
		}
	}
	return Config{}, false
}

func (c Config) logger() log.Logger {
	if c.Logger == nil {
		return log.NewLogger(log.DiscardHandler())
	}
	return c.Logger
}
