package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tud-hci/ticketlab/internal/model"
)

// AppendEvents persists a batch of trace events inside one transaction.
// The sync loop delivers at-least-once, so duplicates are expected after
// a failed flush; the event UUID primary key plus INSERT OR IGNORE makes
// redelivery harmless.
func (s *Store) AppendEvents(ctx context.Context, participantID string, events []model.TraceEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin append events: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO trace_events (id, participant_id, event_type, timestamp, payload)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage: prepare append events: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		payload, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("storage: marshal event payload: %w", err)
		}
		pid := e.ParticipantID
		if pid == "" {
			pid = participantID
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID.String(), pid, string(e.Type),
			e.Timestamp.UTC().Format(time.RFC3339Nano), string(payload),
		); err != nil {
			return fmt.Errorf("storage: insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit append events: %w", err)
	}
	return nil
}

// EventsByParticipant returns all stored events for one participant in
// recording order.
func (s *Store) EventsByParticipant(ctx context.Context, participantID string) ([]model.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, event_type, timestamp, payload
		FROM trace_events WHERE participant_id = ?
		ORDER BY timestamp ASC
	`, participantID)
	if err != nil {
		return nil, fmt.Errorf("storage: events by participant: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// AllEvents returns every stored event across participants, ordered by
// participant and time. Used by the export endpoint.
func (s *Store) AllEvents(ctx context.Context) ([]model.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, event_type, timestamp, payload
		FROM trace_events
		ORDER BY participant_id, timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage: all events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// EventCount returns the number of stored events for one participant.
func (s *Store) EventCount(ctx context.Context, participantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trace_events WHERE participant_id = ?`, participantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: event count: %w", err)
	}
	return n, nil
}

// TotalEventCount returns the number of stored events across all
// participants.
func (s *Store) TotalEventCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trace_events`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: total event count: %w", err)
	}
	return n, nil
}

func scanEvents(rows *sql.Rows) ([]model.TraceEvent, error) {
	var events []model.TraceEvent
	for rows.Next() {
		var (
			idStr, pid, typ, ts, payload string
		)
		if err := rows.Scan(&idStr, &pid, &typ, &ts, &payload); err != nil {
			return nil, fmt.Errorf("storage: scan event: %w", err)
		}

		var e model.TraceEvent
		e.ID, _ = uuid.Parse(idStr)
		e.ParticipantID = pid
		e.Type = model.EventType(typ)
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)

		var data map[string]any
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return nil, fmt.Errorf("storage: unmarshal event payload: %w", err)
		}
		e.Data = model.RawPayload{Type: e.Type, Data: data}
		events = append(events, e)
	}
	return events, rows.Err()
}
