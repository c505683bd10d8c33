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
	"github.com/Fantom-foundation/smt/database/smt"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var Prove = cli.Command{
	Action:    withLogger(prove),
	Name:      "prove",
	Usage:     "prints hex encoded proofs for the current values of keys",
	ArgsUsage: "<directory> <key> [<key> ...]",
	Flags: []cli.Flag{
		&cacheFlag,
		&hashInputsFlag,
	},
}

var VerifyProof = cli.Command{
	Action:    withLogger(verifyProof),
	Name:      "verify-proof",
	Usage:     "checks that a hex encoded proof certifies a key/value pair under a root",
	ArgsUsage: "<key> <value> <proof>",
	Flags: []cli.Flag{
		&rootFlag,
		&configFlag,
		&hashInputsFlag,
	},
}

var rootFlag = cli.StringFlag{
	Name:     "root",
	Usage:    "the root hash the proof is checked against",
	Required: true,
}

const errProofRejected = common.ConstError("proof rejected")

func prove(context *cli.Context, logger log.Logger) (err error) {
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

	hasher := dir.tree.Hasher()
	for _, arg := range args[1:] {
		key, err := parseKey(context, hasher, arg)
		if err != nil {
			return err
		}
		proof, err := dir.tree.Prove(key)
		if err != nil {
			return err
		}
		data, err := proof.Encode(hasher)
		if err != nil {
			return err
		}
		logger.Info("Created proof", "key", key, "included", proof.Included, "size", len(data))
		if _, err := fmt.Fprintln(context.App.Writer, hexutil.Encode(data)); err != nil {
			return err
		}
	}
	return nil
}

func verifyProof(context *cli.Context, logger log.Logger) error {
	if context.Args().Len() != 3 {
		return fmt.Errorf("expected key, value and proof")
	}
	config, found := smt.GetConfigByName(context.String(configFlag.Name))
	if !found {
		return fmt.Errorf("unknown tree configuration: %v", context.String(configFlag.Name))
	}
	hasher, err := smt.NewHasher(config.Hashing)
	if err != nil {
		return err
	}
	root, err := common.ParseHash(context.String(rootFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	key, err := parseKey(context, hasher, context.Args().Get(0))
	if err != nil {
		return err
	}
	value, err := parseValue(context, hasher, context.Args().Get(1))
	if err != nil {
		return err
	}
	data, err := hexutil.Decode(context.Args().Get(2))
	if err != nil {
		return fmt.Errorf("%w: %w", smt.ErrInvalidProof, err)
	}
	proof, err := smt.DecodeProof(data, hasher)
	if err != nil {
		return err
	}
	if !smt.VerifyProof(hasher, root, key, value, proof) {
		logger.Warn("Proof rejected", "key", key, "value", value, "root", root)
		return errProofRejected
	}
	_, err = fmt.Fprintf(context.App.Writer, "valid %v\n", proof)
	return err
}
