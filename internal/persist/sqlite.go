package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned by Read when the slot was never written.
var ErrNotFound = errors.New("persist: slot not found")

// SQLiteStore is a Store backed by the persist_slot table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an already initialised database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Exists returns true if the slot has been written.
func (s *SQLiteStore) Exists(key uint32) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM persist_slot WHERE key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check slot %d: %w", key, err)
	}
	return true, nil
}

// Read returns the value of a slot.
func (s *SQLiteStore) Read(key uint32) (int32, error) {
	var value int64
	err := s.db.QueryRow(`SELECT value FROM persist_slot WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read slot %d: %w", key, err)
	}
	return int32(value), nil
}

// Write upserts a slot.
func (s *SQLiteStore) Write(key uint32, value int32) error {
	now := time.Now().UTC().Unix()

	_, err := s.db.Exec(`
		INSERT INTO persist_slot (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("failed to write slot %d: %w", key, err)
	}

	log.Debug().Uint32("key", key).Int32("value", value).Msg("Persisted slot")
	return nil
}

// Clear removes all slots.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM persist_slot`); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}
	return nil
}
