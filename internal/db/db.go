// Package db implements the durable local store for notes, messages and
// files, plus the sync queue the replay engine drains.
//
// The store is a plain sqlite database (modernc.org/sqlite, no CGO) opened
// in WAL mode with a single writer. Every mutation that needs a queue entry
// commits the row write and the queue append in one transaction, so a crash
// can never leave a PENDING entity without its queue item.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the sqlite database file created inside the data directory.
const FileName = "aicopilot.db"

// DB wraps the sql.DB with offline-store configuration.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the offline database under dataDir.
//
// The connection is configured with WAL journaling, foreign keys and a
// busy timeout. MaxOpenConns is 1: sqlite supports a single writer and the
// store is designed around one logical writer anyway.
//
// The caller must Close the returned DB.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	db := &DB{conn}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
