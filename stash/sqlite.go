// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package stash

import (
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteStore is an alternative durable KVStore implementation keeping the
// whole stash in a single SQLite file.
type sqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (or creates) a SQLite-backed store at the given path.
// Use ":memory:" for an ephemeral database.
func NewSqliteStore(path string) (KVStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS stash (key BLOB PRIMARY KEY, value BLOB NOT NULL)`)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM stash WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *sqliteStore) Set(key []byte, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO stash (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

func (s *sqliteStore) Keys(prefix []byte) ([][]byte, error) {
	upper := prefixUpperBound(prefix)
	var rows *sql.Rows
	var err error
	if upper == nil {
		rows, err = s.db.Query(`SELECT key FROM stash WHERE key >= ? ORDER BY key`, prefix)
	} else {
		rows, err = s.db.Query(
			`SELECT key FROM stash WHERE key >= ? AND key < ? ORDER BY key`, prefix, upper)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys [][]byte
	for rows.Next() {
		var key []byte
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// prefixUpperBound computes the smallest key greater than every key starting
// with the prefix, or nil when no such bound exists.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
