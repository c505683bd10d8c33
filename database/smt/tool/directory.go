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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fantom-foundation/smt/backend/utils"
	"github.com/Fantom-foundation/smt/common"
	"github.com/Fantom-foundation/smt/database/smt"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

const metadataFileName = "meta.json"

var (
	backendFlag = cli.StringFlag{
		Name:  "backend",
		Usage: "the storage backend, one of " + strings.Join(getBackendNames(), ", "),
		Value: "leveldb",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "the tree configuration used when creating a new tree",
		Value: smt.Sha256Config.Name,
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "the number of cached nodes, 0 disables the cache, -1 picks a size based on the configuration and the available memory",
		Value: -1,
	}
)

// treeMetadata is the content of the metadata file describing the tree
// stored in a directory.
type treeMetadata struct {
	Configuration string
	Backend       string
	Root          string
}

// treeDirectory is a tree opened from a directory. The directory is locked
// for as long as the tree is open.
type treeDirectory struct {
	path      string
	meta      treeMetadata
	tree      *smt.Tree
	lock      *common.DirectoryLock
	log       log.Logger
	committed common.Hash // the root recorded in the metadata file
}

func readTreeMetadata(dir string) (treeMetadata, bool, error) {
	path := filepath.Join(dir, metadataFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return treeMetadata{}, false, nil
	}
	meta, err := utils.ReadJsonFile[treeMetadata](path)
	if err != nil {
		return treeMetadata{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return meta, true, nil
}

// openTreeDirectory opens the tree stored in the given directory. If create
// is set and the directory holds no tree, a new empty tree is created using
// the backend and configuration selected by the command line flags.
func openTreeDirectory(context *cli.Context, dir string, create bool, logger log.Logger) (_ *treeDirectory, err error) {
	if create {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if stat, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("no such directory: %v", dir)
	} else if !stat.IsDir() {
		return nil, fmt.Errorf("%v is not a directory", dir)
	}

	lock, err := common.LockDirectory(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, lock.Release())
		}
	}()

	meta, present, err := readTreeMetadata(dir)
	if err != nil {
		return nil, err
	}
	if !present {
		if !create {
			return nil, fmt.Errorf("invalid directory content: missing %s", metadataFileName)
		}
		meta = treeMetadata{
			Configuration: context.String(configFlag.Name),
			Backend:       context.String(backendFlag.Name),
		}
	}

	config, found := smt.GetConfigByName(meta.Configuration)
	if !found {
		return nil, fmt.Errorf("unknown tree configuration: %v", meta.Configuration)
	}
	config.Logger = logger
	config.CacheCapacity = getCacheCapacity(context, config)

	backend, err := getBackendByName(meta.Backend)
	if err != nil {
		return nil, err
	}
	if !backend.Persistent {
		return nil, fmt.Errorf("backend %s can not be used for storing trees in directories", backend.Name)
	}
	store, err := backend.open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", backend.Name, err)
	}

	var tree *smt.Tree
	var root common.Hash
	if present {
		root, err = common.ParseHash(meta.Root)
		if err != nil {
			err = fmt.Errorf("invalid root in %s: %w", metadataFileName, err)
		} else {
			tree, err = smt.OpenTree(store, root, config)
		}
	} else {
		tree, err = smt.NewTree(store, config)
	}
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	logger.Debug("Opened tree directory", "dir", dir, "backend", backend.Name, "config", config.Name, "cache", config.CacheCapacity)

	res := &treeDirectory{path: dir, meta: meta, tree: tree, lock: lock, log: logger, committed: root}
	if !present {
		if err := res.commit(); err != nil {
			return nil, errors.Join(err, tree.Close())
		}
	}
	return res, nil
}

func getCacheCapacity(context *cli.Context, config smt.Config) int {
	capacity := context.Int(cacheFlag.Name)
	if capacity >= 0 {
		return capacity
	}
	if config.CacheCapacity > 0 {
		return config.CacheCapacity
	}
	return getDefaultCacheCapacity()
}

// commit makes the current state of the tree durable. The store is flushed
// before the metadata file referencing the new root is written. Nodes which
// are no longer reachable are pruned only after the new root got recorded,
// so the metadata file never references deleted nodes. The metadata file is
// not touched if the root has not changed since the last commit.
func (d *treeDirectory) commit() error {
	if root := d.tree.Root(); root != d.committed {
		if err := d.tree.Flush(); err != nil {
			return err
		}
		d.meta.Root = root.String()
		if err := utils.WriteJsonFile(filepath.Join(d.path, metadataFileName), d.meta); err != nil {
			return err
		}
		d.committed = root
	}
	// Failed deletions only leave unreachable nodes behind.
	if err := d.tree.Prune(); err != nil {
		d.log.Warn("Pruning failed", "dir", d.path, "err", err)
	}
	return nil
}

// Close commits the tree if it has been modified, closes it, and releases
// the directory.
func (d *treeDirectory) Close() error {
	return errors.Join(
		d.commit(),
		d.tree.Close(),
		d.lock.Release(),
	)
}
