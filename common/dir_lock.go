// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const ErrDirectoryLocked = ConstError("directory is locked by another process")

// LockFileName is the name of the file marking a locked directory.
const LockFileName = "LOCK.smt"

// DirectoryLock marks a directory as owned by a single process. The lock is
// represented by a file created inside the directory, which is removed when
// the lock is released.
//
// Note: locks not released by a crashed process remain in place and need to
// be removed manually.
type DirectoryLock struct {
	path string
	file *os.File
}

// LockDirectory atomically acquires the lock of the given directory. The
// operation fails with ErrDirectoryLocked if the lock is already held.
func LockDirectory(dir string) (*DirectoryLock, error) {
	path := filepath.Join(dir, LockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryLocked, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire directory lock: %w", err)
	}
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		return nil, errors.Join(err, file.Close(), os.Remove(path))
	}
	return &DirectoryLock{path: path, file: file}, nil
}

// Valid checks whether the lock is still held.
func (l *DirectoryLock) Valid() bool {
	return l != nil && l.file != nil
}

// Release gives up the lock. Each lock may only be released once.
func (l *DirectoryLock) Release() error {
	if !l.Valid() {
		return fmt.Errorf("unable to release invalid lock")
	}
	err := errors.Join(l.file.Close(), os.Remove(l.path))
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release directory lock: %w", err)
	}
	return nil
}
