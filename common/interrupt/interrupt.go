// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interrupt

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Fantom-foundation/smt/common"
	"github.com/ethereum/go-ethereum/log"
)

const ErrCanceled = common.ConstError("interrupted")

// IsCancelled returns true if the given context has been cancelled.
func IsCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Register returns a context which is cancelled when the process receives
// SIGINT or SIGTERM, so that long running tree operations can stop between
// two updates instead of being killed in the middle of a batch.
func Register(parent context.Context, logger log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(c)
		select {
		case <-c:
			logger.Warn("Interrupted, finishing current operation")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
