// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smt

//go:generate mockgen -source verification.go -destination verification_mocks.go -package smt

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
)

// VerificationObserver is a listener interface for tracking the progress of
// the verification of a tree. It can, for instance, be implemented by a user
// interface to keep the user updated on current activities.
type VerificationObserver interface {
	StartVerification()
	Progress(msg string)
	EndVerification(res error)
}

// NilVerificationObserver is a trivial implementation of the observer
// interface above which ignores all reported events.
type NilVerificationObserver struct{}

func (NilVerificationObserver) StartVerification()        {}
func (NilVerificationObserver) Progress(msg string)       {}
func (NilVerificationObserver) EndVerification(res error) {}

// maxReportedIssues limits the number of issues collected before the
// verification is aborted.
const maxReportedIssues = 100

// progressInterval is the number of visited nodes between progress reports.
const progressInterval = 1 << 20

// VerifyTree checks the tree rooted at the given hash. The checks include:
//   - all nodes reachable from the root are present and can be decoded
//   - every node is stored under the hash of its payload
//   - every leaf is located on the path of its key
func VerifyTree(store kvstore.Store, root common.Hash, hasher *Hasher, observer VerificationObserver) (res error) {
	if observer == nil {
		observer = NilVerificationObserver{}
	}
	observer.StartVerification()
	defer func() {
		observer.EndVerification(res)
	}()

	observer.Progress(fmt.Sprintf("Checking tree with root %v using %v hashing ...", root, hasher.Algorithm()))
	v := &verifier{store: store, hasher: hasher, observer: observer}
	if err := v.check(root, 0); err != nil {
		v.issues = append(v.issues, err)
	}
	if len(v.issues) > 0 {
		return errors.Join(v.issues...)
	}
	observer.Progress(fmt.Sprintf("Verified %d internal nodes and %d leaves", v.internal, v.leaves))
	return nil
}

type verifier struct {
	store    kvstore.Store
	hasher   *Hasher
	observer VerificationObserver
	path     common.Key // bits of the current position, set up to the current depth
	issues   []error
	internal int
	leaves   int
}

// check verifies the subtree rooted at the given depth. Inconsistencies are
// collected as issues; a returned error aborts the verification.
func (v *verifier) check(id common.Hash, depth int) error {
	if id == v.hasher.EmptySubtreeHash(depth) {
		return nil
	}
	if len(v.issues) >= maxReportedIssues {
		return fmt.Errorf("too many issues, verification aborted")
	}
	if n := v.internal + v.leaves; n > 0 && n%progressInterval == 0 {
		v.observer.Progress(fmt.Sprintf("Checked %d nodes ...", n))
	}

	payload, err := v.store.Get(id)
	if err != nil {
		return fmt.Errorf("%w: failed to load node %v: %w", ErrStorage, id, err)
	}
	if payload == nil {
		v.issues = append(v.issues, fmt.Errorf("%w: missing node %v at depth %d", ErrCorruptData, id, depth))
		return nil
	}
	if got := v.hasher.Digest(payload); got != id {
		v.issues = append(v.issues, fmt.Errorf("%w: node stored under %v has hash %v", ErrCorruptData, id, got))
		return nil
	}

	if depth == Depth {
		v.leaves++
		key, _, err := DecodeLeaf(payload)
		if err != nil {
			v.issues = append(v.issues, fmt.Errorf("leaf %v: %w", id, err))
			return nil
		}
		if key != v.path {
			v.issues = append(v.issues, fmt.Errorf("%w: leaf %v of key %v found at position %v", ErrCorruptData, id, key, v.path))
		}
		return nil
	}

	v.internal++
	left, right, err := DecodeInternal(payload)
	if err != nil {
		v.issues = append(v.issues, fmt.Errorf("node %v at depth %d: %w", id, depth, err))
		return nil
	}
	mask := byte(0x80) >> (depth % 8)
	v.path[depth/8] &^= mask
	if err := v.check(left, depth+1); err != nil {
		return err
	}
	v.path[depth/8] |= mask
	if err := v.check(right, depth+1); err != nil {
		return err
	}
	v.path[depth/8] &^= mask
	return nil
}
