package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tud-hci/ticketlab/internal/model"
)

// SaveSurvey stores a participant's questionnaire answers. Resubmission
// replaces the earlier record; the last complete submission wins.
func (s *Store) SaveSurvey(ctx context.Context, resp model.SurveyResponse) error {
	answers, err := json.Marshal(resp.Answers)
	if err != nil {
		return fmt.Errorf("storage: marshal survey answers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO survey_responses (participant_id, answers, completed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(participant_id) DO UPDATE SET
			answers=excluded.answers, completed_at=excluded.completed_at
	`, resp.ParticipantID, string(answers), resp.CompletedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storage: save survey: %w", err)
	}
	return nil
}

// Surveys returns all stored survey responses.
func (s *Store) Surveys(ctx context.Context) ([]model.SurveyResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, answers, completed_at FROM survey_responses ORDER BY completed_at`)
	if err != nil {
		return nil, fmt.Errorf("storage: surveys: %w", err)
	}
	defer rows.Close()

	var out []model.SurveyResponse
	for rows.Next() {
		var r model.SurveyResponse
		var answers, completedAt string
		if err := rows.Scan(&r.ParticipantID, &answers, &completedAt); err != nil {
			return nil, fmt.Errorf("storage: scan survey: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("storage: unmarshal survey answers: %w", err)
		}
		r.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveContact stores an optional post-study contact request.
func (s *Store) SaveContact(ctx context.Context, req model.ContactRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_requests (participant_id, email, message, submitted_at)
		VALUES (?, ?, ?, ?)
	`, req.ParticipantID, req.Email, req.Message, req.SubmittedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storage: save contact: %w", err)
	}
	return nil
}

// Contacts returns all stored contact requests.
func (s *Store) Contacts(ctx context.Context) ([]model.ContactRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, email, message, submitted_at FROM contact_requests ORDER BY submitted_at`)
	if err != nil {
		return nil, fmt.Errorf("storage: contacts: %w", err)
	}
	defer rows.Close()

	var out []model.ContactRequest
	for rows.Next() {
		var c model.ContactRequest
		var submittedAt string
		if err := rows.Scan(&c.ParticipantID, &c.Email, &c.Message, &submittedAt); err != nil {
			return nil, fmt.Errorf("storage: scan contact: %w", err)
		}
		c.SubmittedAt, _ = time.Parse(time.RFC3339, submittedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}
