// Package history keeps a local record of connection attempts in SQLite so
// the kiosk can show what happened while nobody was watching the logs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded connection attempt.
type Entry struct {
	AttemptID  string    `json:"attempt_id"`
	ClientID   string    `json:"client_id"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	Principal  string    `json:"principal"`
	Outcome    string    `json:"outcome"` // connected, failed, disconnected
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store persists attempt history.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	attempt_id  TEXT PRIMARY KEY,
	client_id   TEXT NOT NULL,
	host        TEXT NOT NULL,
	port        INTEGER NOT NULL,
	principal   TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_at DESC);
`

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts or updates one attempt. Upsert on attempt_id: the
// coordinator records a row per terminal outcome and a retry of the same
// attempt id just overwrites.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO attempts(attempt_id, client_id, host, port, principal, outcome, detail, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(attempt_id) DO UPDATE SET
	outcome=excluded.outcome,
	detail=excluded.detail,
	finished_at=excluded.finished_at
`, e.AttemptID, e.ClientID, e.Host, e.Port, e.Principal, e.Outcome, e.Detail,
		e.StartedAt.UTC().UnixMilli(), e.FinishedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Recent returns the most recent attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT attempt_id, client_id, host, port, principal, outcome, detail, started_at, finished_at
FROM attempts ORDER BY started_at DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.AttemptID, &e.ClientID, &e.Host, &e.Port, &e.Principal,
			&e.Outcome, &e.Detail, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		e.StartedAt = time.UnixMilli(started).UTC()
		e.FinishedAt = time.UnixMilli(finished).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
