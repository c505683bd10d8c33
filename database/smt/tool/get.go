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

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var Get = cli.Command{
	Action:    withLogger(get),
	Name:      "get",
	Usage:     "prints the values of keys, the empty value for keys not present",
	ArgsUsage: "<directory> <key> [<key> ...]",
	Flags: []cli.Flag{
		&cacheFlag,
		&hashInputsFlag,
	},
}

func get(context *cli.Context, logger log.Logger) (err error) {
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

	for _, arg := range args[1:] {
		key, err := parseKey(context, dir.tree.Hasher(), arg)
		if err != nil {
			return err
		}
		value, err := dir.tree.Get(key)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(context.App.Writer, "%v\n", value); err != nil {
			return err
		}
	}
	return nil
}
