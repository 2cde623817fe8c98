package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tud-hci/ticketlab/internal/model"
)

// Snapshot keys. One row per participant per key; SaveSnapshot replaces
// the previous value.
const (
	SnapshotSession     = "experiment_session"
	SnapshotTraceBuffer = "experiment_trace_buffer"
)

// SaveSnapshot stores a JSON-serializable value under the given key for
// one participant, replacing any earlier snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, participantID, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_snapshots (participant_id, key, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(participant_id, key) DO UPDATE SET
			payload=excluded.payload, updated_at=excluded.updated_at
	`, participantID, key, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storage: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot stored under key into out. Returns
// ErrNotFound when no snapshot exists.
func (s *Store) LoadSnapshot(ctx context.Context, participantID, key string, out any) error {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM session_snapshots WHERE participant_id = ? AND key = ?`,
		participantID, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("storage: unmarshal snapshot: %w", err)
	}
	return nil
}

// SaveTraceBufferSnapshot persists the events still sitting in a
// participant's in-memory buffer when the session closes. Empty after a
// clean final flush; non-empty when that flush failed, so the residue
// survives a restart instead of dying with the process.
func (s *Store) SaveTraceBufferSnapshot(ctx context.Context, participantID string, events []model.TraceEvent) error {
	if events == nil {
		events = []model.TraceEvent{}
	}
	return s.SaveSnapshot(ctx, participantID, SnapshotTraceBuffer, events)
}

// SaveSessionSnapshot persists the participant's full session record.
func (s *Store) SaveSessionSnapshot(ctx context.Context, data model.SessionData) error {
	return s.SaveSnapshot(ctx, data.ParticipantID, SnapshotSession, data)
}

// SnapshotParticipants lists participants that have a stored session
// snapshot, in first-seen order.
func (s *Store) SnapshotParticipants(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id FROM session_snapshots
		WHERE key = ? ORDER BY updated_at
	`, SnapshotSession)
	if err != nil {
		return nil, fmt.Errorf("storage: snapshot participants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
