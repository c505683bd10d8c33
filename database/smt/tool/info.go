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

var Info = cli.Command{
	Action: withLogger(info),
	Name:   "info",
	Usage:  "lists information about a tree stored in a directory",
	Flags: []cli.Flag{
		&statsFlag,
	},
	ArgsUsage: "<directory>",
}

var (
	statsFlag = cli.BoolFlag{
		Name:  "stats",
		Usage: "Compute and print node statistics",
	}
)

func info(context *cli.Context, logger log.Logger) (err error) {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing directory storing the tree")
	}
	dir, err := openTreeDirectory(context, context.Args().Get(0), false, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dir.Close())
	}()

	out := context.App.Writer
	fmt.Fprintf(out, "Directory contains a tree with the following properties:\n")
	fmt.Fprintf(out, "\tConfiguration: %v\n", dir.meta.Configuration)
	fmt.Fprintf(out, "\tHashing:       %v\n", dir.tree.Hasher().Algorithm())
	fmt.Fprintf(out, "\tBackend:       %v\n", dir.meta.Backend)
	fmt.Fprintf(out, "\tRoot:          %v\n", dir.tree.Root())
	fmt.Fprintf(out, "\tEmpty:         %t\n", dir.tree.Root() == dir.tree.Hasher().EmptyRoot())

	if context.Bool(statsFlag.Name) {
		fmt.Fprintf(out, "\nCollecting Node Statistics ...\n")
		stats, err := dir.tree.GetStatistics()
		if err != nil {
			return err
		}
		fmt.Fprint(out, "\n--- Node Statistics ---\n")
		fmt.Fprintln(out, stats.String())
		for depth, count := range stats.InternalNodesPerDepth {
			if depth%32 == 0 || depth == len(stats.InternalNodesPerDepth)-1 {
				fmt.Fprintf(out, "\tdepth %3d: %d\n", depth, count)
			}
		}
	}
	return nil
}
