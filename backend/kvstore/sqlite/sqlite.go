// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/Fantom-foundation/smt/backend/kvstore"
	"github.com/Fantom-foundation/smt/common"
	_ "github.com/mattn/go-sqlite3"
)

const cacheSizeKiB = 65536

var (
	// See https://www.sqlite.org/pragma.html
	kConfigureConnection = []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", cacheSizeKiB),
		"PRAGMA locking_mode = EXCLUSIVE",
	}
)

const (
	kCreateNodeTable = "CREATE TABLE IF NOT EXISTS node (id BLOB PRIMARY KEY, payload BLOB NOT NULL) WITHOUT ROWID"
	kGetNodeStmt     = "SELECT payload FROM node WHERE id = ?"
	kSetNodeStmt     = "INSERT OR REPLACE INTO node(id, payload) VALUES (?,?)"
	kDeleteNodeStmt  = "DELETE FROM node WHERE id = ?"
)

// Store is a kvstore.Store keeping payloads in a SQLite table.
type Store struct {
	db         *sql.DB
	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	closed     atomic.Bool
}

// OpenStore opens or creates a SQLite database in the given file.
func OpenStore(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+file)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite; %w", err)
	}
	// connection-level pragmas only apply when all statements share one connection
	db.SetMaxOpenConns(1)
	for _, cmd := range kConfigureConnection {
		if _, err := db.Exec(cmd); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to configure connection with %s; %w", cmd, err), db.Close())
		}
	}
	if _, err := db.Exec(kCreateNodeTable); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create node table; %w", err), db.Close())
	}

	res := &Store{db: db}
	for _, prep := range []struct {
		query string
		stmt  **sql.Stmt
	}{
		{kGetNodeStmt, &res.getStmt},
		{kSetNodeStmt, &res.setStmt},
		{kDeleteNodeStmt, &res.deleteStmt},
	} {
		stmt, err := db.Prepare(prep.query)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to prepare %s; %w", prep.query, err), res.closeStatements(), db.Close())
		}
		*prep.stmt = stmt
	}
	return res, nil
}

func (s *Store) Get(id common.Hash) ([]byte, error) {
	if s.closed.Load() {
		return nil, kvstore.ErrClosed
	}
	var payload []byte
	err := s.getStmt.QueryRow(id[:]).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return payload, err
}

func (s *Store) Set(id common.Hash, payload []byte) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	_, err := s.setStmt.Exec(id[:], payload)
	return err
}

// SetBatch inserts all entries within one SQL transaction.
func (s *Store) SetBatch(entries []kvstore.Entry) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(s.setStmt)
	for _, entry := range entries {
		if _, err := stmt.Exec(entry.Id[:], entry.Payload); err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}
	return tx.Commit()
}

func (s *Store) Delete(id common.Hash) error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	_, err := s.deleteStmt.Exec(id[:])
	return err
}

// Flush moves the content of the write-ahead log into the database file.
func (s *Store) Flush() error {
	if s.closed.Load() {
		return kvstore.ErrClosed
	}
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return errors.Join(s.closeStatements(), s.db.Close())
}

func (s *Store) closeStatements() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.getStmt, s.setStmt, s.deleteStmt} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	return errors.Join(errs...)
}

// GetMemoryFootprint provides the configured size of SQLite's page cache.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("pageCache", common.NewMemoryFootprint(cacheSizeKiB*1024))
	return mf
}
