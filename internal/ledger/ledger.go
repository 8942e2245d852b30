// Package ledger keeps an append-only history of what happened on the sync
// channel. It is for diagnostics only; nothing reads it back into face state.
package ledger

import (
	"database/sql"
	"time"
)

// Outcome classifies a ledger entry
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeRejected       Outcome = "rejected"
	OutcomeTransportError Outcome = "transport_error"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64     `json:"id"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
	Key       *uint32   `json:"key,omitempty"`
	Value     *int32    `json:"value,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Ledger provides append-only sync history
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordUpdate appends the outcome of one inbound key/value update
func (l *Ledger) RecordUpdate(outcome Outcome, key uint32, value int32, detail string) error {
	_, err := l.db.Exec(`
		INSERT INTO sync_ledger (outcome, timestamp, key, value, detail) VALUES (?, ?, ?, ?, ?)
	`, string(outcome), time.Now().UTC().Unix(), key, value, detail)
	return err
}

// RecordTransportError appends a transport failure
func (l *Ledger) RecordTransportError(detail string) error {
	_, err := l.db.Exec(`
		INSERT INTO sync_ledger (outcome, timestamp, detail) VALUES (?, ?, ?)
	`, string(OutcomeTransportError), time.Now().UTC().Unix(), detail)
	return err
}

// Recent returns the newest entries first
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, outcome, timestamp, key, value, detail
		FROM sync_ledger
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM sync_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var key, value sql.NullInt64
		var detail sql.NullString
		var timestamp int64

		if err := rows.Scan(&entry.ID, &entry.Outcome, &timestamp, &key, &value, &detail); err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if key.Valid {
			k := uint32(key.Int64)
			entry.Key = &k
		}
		if value.Valid {
			v := int32(value.Int64)
			entry.Value = &v
		}
		if detail.Valid {
			entry.Detail = detail.String
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
