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
	"os"
	"runtime/pprof"
	"runtime/trace"
	"strings"

	"github.com/urfave/cli/v2"
)

// Run using
//  go run ./database/smt/tool <command> <flags>

var (
	cpuProfileFlag = cli.StringFlag{
		Name:  "cpuprofile",
		Usage: "sets the target file for storing CPU profiles to, disabled if empty",
		Value: "",
	}
	traceFlag = cli.StringFlag{
		Name:  "tracefile",
		Usage: "sets the target file for traces to, disabled if empty",
		Value: "",
	}
	logFileFlag = cli.StringFlag{
		Name:  "logfile",
		Usage: "additionally writes log messages to the given file, rotated by size",
		Value: "",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "tool",
		Usage:     "Sparse Merkle Tree toolbox",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags: []cli.Flag{
			&cpuProfileFlag,
			&traceFlag,
			&logFileFlag,
			&verbosityFlag,
		},
		Commands: []*cli.Command{
			&Update,
			&Get,
			&Delete,
			&Prove,
			&VerifyProof,
			&Check,
			&Info,
			&Stress,
		},
	}
}

func addPerformanceDiagnoses(action cli.ActionFunc) cli.ActionFunc {
	return func(context *cli.Context) error {
		// Start CPU profiling.
		cpuProfileFileName := context.String(cpuProfileFlag.Name)
		if strings.TrimSpace(cpuProfileFileName) != "" {
			if err := startCpuProfiler(cpuProfileFileName); err != nil {
				return err
			}
			defer stopCpuProfiler()
		}

		// Start recording a trace.
		traceFileName := context.String(traceFlag.Name)
		if strings.TrimSpace(traceFileName) != "" {
			if err := startTracer(traceFileName); err != nil {
				return err
			}
			defer stopTracer()
		}

		return action(context)
	}
}

func startCpuProfiler(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %s", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return fmt.Errorf("could not start CPU profile: %s", err)
	}
	return nil
}

func stopCpuProfiler() {
	pprof.StopCPUProfile()
}

func startTracer(filename string) error {
	traceFile, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %v", err)
	}
	if err := trace.Start(traceFile); err != nil {
		return fmt.Errorf("failed to start trace: %v", err)
	}
	return nil
}

func stopTracer() {
	trace.Stop()
}
