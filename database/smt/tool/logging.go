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
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// toolAction is a command action receiving the logger set up according to
// the global logging flags.
type toolAction func(context *cli.Context, logger log.Logger) error

// withLogger wraps a toolAction into a cli action. The logger writes to the
// application's error stream and, if requested, to a rotated log file.
func withLogger(action toolAction) cli.ActionFunc {
	return addPerformanceDiagnoses(func(context *cli.Context) error {
		logger, closer := newLogger(context)
		defer closer.Close()
		return action(context, logger)
	})
}

func newLogger(context *cli.Context) (log.Logger, io.Closer) {
	verbosity := context.Int(verbosityFlag.Name)
	if verbosity <= 0 {
		return log.NewLogger(log.DiscardHandler()), io.NopCloser(nil)
	}
	level := log.FromLegacyLevel(verbosity)

	var out io.Writer = context.App.ErrWriter
	var closer io.Closer = io.NopCloser(nil)
	if fileName := context.String(logFileFlag.Name); fileName != "" {
		file := &lumberjack.Logger{
			Filename:   fileName,
			MaxSize:    64, // megabytes
			MaxBackups: 8,
			Compress:   true,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(out, level, false)), closer
}
