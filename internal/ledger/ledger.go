// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ledger records the outcome of every processed queue message in a
// SQLite database so redelivered messages that already succeeded are not
// processed twice.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ocr-demarcator/internal/demarcation"
)

// Message statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrNotFound is returned by Get for unknown message ids.
var ErrNotFound = errors.New("ledger entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS processed_messages (
	message_id   TEXT PRIMARY KEY,
	upload_id    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	rows_json    TEXT NOT NULL DEFAULT '[]',
	error        TEXT NOT NULL DEFAULT '',
	processed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processed_messages_upload ON processed_messages(upload_id);
`

// Entry is one ledger row.
type Entry struct {
	MessageID   string
	UploadID    string
	Status      string
	Rows        []demarcation.Row
	Error       string
	ProcessedAt time.Time
}

// Ledger wraps the database. The zero value (and a disabled ledger) accepts
// every call and stores nothing.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger at path. When enabled is false it returns
// a no-op ledger.
func Open(path string, enabled bool) (*Ledger, error) {
	if !enabled {
		return &Ledger{}, nil
	}
	if path == "" {
		return nil, fmt.Errorf("ledger path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}

	return &Ledger{db: db, path: path}, nil
}

// Enabled reports whether entries are persisted.
func (l *Ledger) Enabled() bool {
	return l != nil && l.db != nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if !l.Enabled() {
		return nil
	}
	return l.db.Close()
}

// Record stores the outcome for a message, replacing any earlier entry.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if !l.Enabled() {
		return nil
	}
	if e.MessageID == "" {
		return fmt.Errorf("ledger entry needs a message id")
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now()
	}
	rows := e.Rows
	if rows == nil {
		rows = []demarcation.Row{}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling rows: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO processed_messages (message_id, upload_id, status, rows_json, error, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			upload_id = excluded.upload_id,
			status = excluded.status,
			rows_json = excluded.rows_json,
			error = excluded.error,
			processed_at = excluded.processed_at
	`, e.MessageID, e.UploadID, e.Status, string(rowsJSON), e.Error, e.ProcessedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording message %s: %w", e.MessageID, err)
	}
	return nil
}

// Get returns the entry for messageID.
func (l *Ledger) Get(ctx context.Context, messageID string) (*Entry, error) {
	if !l.Enabled() {
		return nil, ErrNotFound
	}

	var (
		e         Entry
		rowsJSON  string
		processed string
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT message_id, upload_id, status, rows_json, error, processed_at
		FROM processed_messages WHERE message_id = ?
	`, messageID).Scan(&e.MessageID, &e.UploadID, &e.Status, &rowsJSON, &e.Error, &processed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading message %s: %w", messageID, err)
	}

	if err := json.Unmarshal([]byte(rowsJSON), &e.Rows); err != nil {
		return nil, fmt.Errorf("decoding rows for %s: %w", messageID, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, processed); err == nil {
		e.ProcessedAt = t
	}
	return &e, nil
}

// Succeeded reports whether messageID was already processed successfully.
func (l *Ledger) Succeeded(ctx context.Context, messageID string) (bool, error) {
	e, err := l.Get(ctx, messageID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Status == StatusSucceeded, nil
}

// Counts returns the number of entries per status.
func (l *Ledger) Counts(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	if !l.Enabled() {
		return counts, nil
	}
	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM processed_messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning counts: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
