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

	"github.com/Fantom-foundation/smt/common"
	"github.com/Fantom-foundation/smt/common/interrupt"
	"github.com/Fantom-foundation/smt/database/smt"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var Update = cli.Command{
	Action:    withLogger(update),
	Name:      "update",
	Usage:     "sets values of keys, creating the tree if the directory holds none",
	ArgsUsage: "<directory> <key> <value> [<key> <value> ...]",
	Flags: []cli.Flag{
		&backendFlag,
		&configFlag,
		&cacheFlag,
		&hashInputsFlag,
	},
}

var Delete = cli.Command{
	Action:    withLogger(deleteKeys),
	Name:      "delete",
	Usage:     "resets keys to the empty value",
	ArgsUsage: "<directory> <key> [<key> ...]",
	Flags: []cli.Flag{
		&cacheFlag,
		&hashInputsFlag,
	},
}

var hashInputsFlag = cli.BoolFlag{
	Name:  "hash-inputs",
	Usage: "hashes keys and values given as arbitrary strings instead of parsing them as 32-byte hex values",
}

func parseKey(context *cli.Context, hasher *smt.Hasher, arg string) (common.Key, error) {
	if context.Bool(hashInputsFlag.Name) {
		return common.Key(hasher.Digest([]byte(arg))), nil
	}
	key, err := common.ParseKey(arg)
	if err != nil {
		return key, fmt.Errorf("invalid key %q: %w", arg, err)
	}
	return key, nil
}

func parseValue(context *cli.Context, hasher *smt.Hasher, arg string) (common.Value, error) {
	if context.Bool(hashInputsFlag.Name) {
		return common.Value(hasher.Digest([]byte(arg))), nil
	}
	value, err := common.ParseValue(arg)
	if err != nil {
		return value, fmt.Errorf("invalid value %q: %w", arg, err)
	}
	return value, nil
}

func update(context *cli.Context, logger log.Logger) (err error) {
	args := context.Args().Slice()
	if len(args) < 3 || len(args)%2 != 1 {
		return fmt.Errorf("expected a directory followed by key/value pairs")
	}
	dir, err := openTreeDirectory(context, args[0], true, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dir.Close())
	}()

	updates := make([]smt.KeyValue, 0, len(args)/2)
	for i := 1; i < len(args); i += 2 {
		key, err := parseKey(context, dir.tree.Hasher(), args[i])
		if err != nil {
			return err
		}
		value, err := parseValue(context, dir.tree.Hasher(), args[i+1])
		if err != nil {
			return err
		}
		updates = append(updates, smt.KeyValue{Key: key, Value: value})
	}
	return applyUpdates(context, dir, updates, logger)
}

func deleteKeys(context *cli.Context, logger log.Logger) (err error) {
	args := context.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("expected a directory followed by keys")
	}
	dir, err := openTreeDirectory(context, args[0], false, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dir.Close())
	}()

	updates := make([]smt.KeyValue, 0, len(args)-1)
	for _, arg := range args[1:] {
		key, err := parseKey(context, dir.tree.Hasher(), arg)
		if err != nil {
			return err
		}
		updates = append(updates, smt.KeyValue{Key: key, Value: common.EmptyValue})
	}
	return applyUpdates(context, dir, updates, logger)
}

// applyUpdates applies the updates one by one, stopping early when the
// process is interrupted. Updates applied before an interruption are kept
// and committed when the directory is closed.
func applyUpdates(context *cli.Context, dir *treeDirectory, updates []smt.KeyValue, logger log.Logger) error {
	ctx, cancel := interrupt.Register(context.Context, logger)
	defer cancel()
	tree := dir.tree
	for i, update := range updates {
		if interrupt.IsCancelled(ctx) {
			logger.Warn("Update interrupted", "applied", i, "total", len(updates))
			return interrupt.ErrCanceled
		}
		if _, err := tree.Update(update.Key, update.Value); err != nil {
			return err
		}
	}
	if err := dir.commit(); err != nil {
		return err
	}
	logger.Info("Applied updates", "count", len(updates), "root", tree.Root())
	_, err := fmt.Fprintf(context.App.Writer, "%v\n", tree.Root())
	return err
}
