// Package db provides the SQLite connection and schema for the watch face.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// OpenMemory opens a private in-memory database with the full schema.
// A single connection is kept so every query sees the same database.
func OpenMemory() (*DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Persisted field slots - one integer per sync key
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS persist_slot (
			key INTEGER PRIMARY KEY,
			value INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create persist_slot table: %w", err)
	}

	// Sync history - append-only record of inbound updates and transport errors
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			outcome TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			key INTEGER,
			value INTEGER,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_sync_ledger_ts ON sync_ledger(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create sync_ledger table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
