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
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/smt/common"
	"github.com/Fantom-foundation/smt/common/interrupt"
	"github.com/Fantom-foundation/smt/database/smt"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var Stress = cli.Command{
	Action: withLogger(stress),
	Name:   "stress",
	Usage:  "inserts random keys into independent trees and checks the results",
	Flags: []cli.Flag{
		&backendFlag,
		&configFlag,
		&cacheFlag,
		&tmpDirFlag,
		&numKeysFlag,
		&numTreesFlag,
		&reportIntervalFlag,
		&seedFlag,
	},
}

var (
	tmpDirFlag = cli.StringFlag{
		Name:  "tmp-dir",
		Usage: "directory for temporary tree data, the system's default if empty",
	}
	numKeysFlag = cli.IntFlag{
		Name:  "num-keys",
		Usage: "the number of keys inserted into each tree",
		Value: 1 << 14,
	}
	numTreesFlag = cli.IntFlag{
		Name:  "num-trees",
		Usage: "the number of independent trees updated concurrently",
		Value: 1,
	}
	reportIntervalFlag = cli.IntFlag{
		Name:  "report-interval",
		Usage: "the number of keys inserted between progress reports",
		Value: 1 << 12,
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "the seed for the random number generator, 0 for a random seed",
		Value: 0,
	}
)

// numCheckedKeys is the number of inserted keys read back after the run.
const numCheckedKeys = 1 << 10

func stress(context *cli.Context, logger log.Logger) error {
	config, found := smt.GetConfigByName(context.String(configFlag.Name))
	if !found {
		return fmt.Errorf("unknown tree configuration: %v", context.String(configFlag.Name))
	}
	config.Logger = logger
	config.CacheCapacity = getCacheCapacity(context, config)

	backend, err := getBackendByName(context.String(backendFlag.Name))
	if err != nil {
		return err
	}

	numKeys := context.Int(numKeysFlag.Name)
	if numKeys <= 0 {
		return fmt.Errorf("number of keys must be positive")
	}
	numTrees := context.Int(numTreesFlag.Name)
	if numTrees <= 0 {
		return fmt.Errorf("number of trees must be positive")
	}
	reportInterval := context.Int(reportIntervalFlag.Name)
	if reportInterval <= 0 {
		reportInterval = numKeys
	}
	seed := context.Int64(seedFlag.Name)
	if seed <= 0 {
		seed = time.Now().UnixNano()
	}

	tmpDir := context.String(tmpDirFlag.Name)
	if len(tmpDir) == 0 {
		tmpDir = os.TempDir()
	}
	dir := filepath.Join(tmpDir, fmt.Sprintf("smt-stress-%d", time.Now().UnixNano()))
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	defer os.RemoveAll(dir)

	out := context.App.Writer
	fmt.Fprintf(out, "Inserting %d keys into each of %d trees on %s using %s, seed %d ...\n", numKeys, numTrees, backend.Name, config.Name, seed)

	ctx, cancel := interrupt.Register(context.Context, logger)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	var inserted atomic.Int64
	start := time.Now()
	roots := make([]common.Hash, numTrees)
	for i := 0; i < numTrees; i++ {
		i := i
		group.Go(func() error {
			treeDir := filepath.Join(dir, fmt.Sprintf("tree-%d", i))
			if err := os.MkdirAll(treeDir, 0700); err != nil {
				return err
			}
			store, err := backend.open(treeDir)
			if err != nil {
				return fmt.Errorf("failed to open %s store: %w", backend.Name, err)
			}
			tree, err := smt.NewTree(store, config)
			if err != nil {
				return errors.Join(err, store.Close())
			}

			rand := rand.New(rand.NewSource(seed + int64(i)))
			checked := make([]smt.KeyValue, 0, numCheckedKeys)
			for j := 0; j < numKeys; j++ {
				if interrupt.IsCancelled(ctx) {
					return errors.Join(interrupt.ErrCanceled, tree.Close())
				}
				var update smt.KeyValue
				rand.Read(update.Key[:])
				rand.Read(update.Value[:])
				if _, err := tree.Update(update.Key, update.Value); err != nil {
					return errors.Join(err, tree.Close())
				}
				if len(checked) < numCheckedKeys {
					checked = append(checked, update)
				}
				if (j+1)%reportInterval == 0 {
					if err := tree.Prune(); err != nil {
						return errors.Join(err, tree.Close())
					}
				}
				if n := inserted.Add(1); n%int64(reportInterval) == 0 {
					elapsed := time.Since(start)
					logger.Info("Progress", "inserted", n, "elapsed", elapsed.Round(time.Millisecond), "rate", fmt.Sprintf("%.0f keys/s", float64(n)/elapsed.Seconds()))
				}
			}

			if err := tree.Prune(); err != nil {
				return errors.Join(err, tree.Close())
			}
			for _, update := range checked {
				value, err := tree.Get(update.Key)
				if err != nil {
					return errors.Join(err, tree.Close())
				}
				if value != update.Value {
					return errors.Join(fmt.Errorf("tree %d: unexpected value for key %v, wanted %v, got %v", i, update.Key, update.Value, value), tree.Close())
				}
			}
			roots[i] = tree.Root()
			logger.Debug("Tree completed", "tree", i, "root", roots[i], "memory", tree.GetMemoryFootprint().Total())
			if i == 0 {
				fmt.Fprintf(out, "Memory footprint of tree 0:\n%v", tree.GetMemoryFootprint())
			}
			return tree.Close()
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Fprintf(out, "Inserted %d keys in %v (%.0f keys/s)\n", inserted.Load(), elapsed.Round(time.Millisecond), float64(inserted.Load())/elapsed.Seconds())
	for i, root := range roots {
		fmt.Fprintf(out, "Tree %d root: %v\n", i, root)
	}
	return nil
}
