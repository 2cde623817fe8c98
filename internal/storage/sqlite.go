// Package storage persists research data in SQLite: trace events,
// survey and contact submissions, and session snapshots. The store is
// the durable side of the sync pipeline; everything in it survives a
// process restart.
package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding all collected study data.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}

	// WAL mode for concurrent reads during export.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trace_events (
			id             TEXT PRIMARY KEY,
			participant_id TEXT NOT NULL,
			event_type     TEXT NOT NULL,
			timestamp      TEXT NOT NULL,
			payload        TEXT NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS survey_responses (
			participant_id TEXT PRIMARY KEY,
			answers        TEXT NOT NULL DEFAULT '{}',
			completed_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS contact_requests (
			participant_id TEXT NOT NULL,
			email          TEXT NOT NULL,
			message        TEXT NOT NULL DEFAULT '',
			submitted_at   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_snapshots (
			participant_id TEXT NOT NULL,
			key            TEXT NOT NULL,
			payload        TEXT NOT NULL,
			updated_at     TEXT NOT NULL,
			PRIMARY KEY (participant_id, key)
		);

		CREATE INDEX IF NOT EXISTS idx_events_participant ON trace_events(participant_id);
		CREATE INDEX IF NOT EXISTS idx_events_type ON trace_events(event_type);
	`)
	if err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection (for testing or direct access).
func (s *Store) DB() *sql.DB {
	return s.db
}
