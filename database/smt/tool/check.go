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
	"io"
	"time"

	"github.com/Fantom-foundation/smt/database/smt"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var Check = cli.Command{
	Action:    withLogger(check),
	Name:      "check",
	Usage:     "verifies the consistency of all nodes reachable from the current root",
	ArgsUsage: "<directory>",
	Flags: []cli.Flag{
		&cacheFlag,
	},
}

func check(context *cli.Context, logger log.Logger) (err error) {
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

	observer := &verificationObserver{out: context.App.Writer}
	return dir.tree.Verify(observer)
}

type verificationObserver struct {
	out   io.Writer
	start time.Time
}

func (o *verificationObserver) StartVerification() {
	o.start = time.Now()
	o.printHeader()
	fmt.Fprintln(o.out, "Starting verification ...")
}

func (o *verificationObserver) Progress(msg string) {
	o.printHeader()
	fmt.Fprintln(o.out, msg)
}

func (o *verificationObserver) EndVerification(res error) {
	if res == nil {
		o.printHeader()
		fmt.Fprintln(o.out, "Verification successful!")
	}
}

func (o *verificationObserver) printHeader() {
	now := time.Now()
	t := uint64(now.Sub(o.start).Seconds())
	fmt.Fprintf(o.out, "%s [t=%4d:%02d] - ", now.Format("15:04:05"), t/60, t%60)
}

var _ smt.VerificationObserver = (*verificationObserver)(nil)
