package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/scoring"
)

type surveyRequest struct {
	Answers map[string]any `json:"answers"`
}

type surveyResponse struct {
	Performance model.Performance `json:"performance"`
}

// validateSurveyAnswers checks the submission against the questionnaire
// definition. Likert answers arrive as JSON numbers.
func validateSurveyAnswers(cfg model.SurveyConfig, answers map[string]any) []string {
	known := make(map[string]model.SurveyQuestion, len(cfg.Questions))
	var problems []string
	for _, q := range cfg.Questions {
		known[q.ID] = q
		answer, present := answers[q.ID]
		if !present {
			if q.Required {
				problems = append(problems, fmt.Sprintf("%s: answer required", q.ID))
			}
			continue
		}
		switch q.Type {
		case model.SurveyLikert:
			n, ok := answer.(float64)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s: expected a number", q.ID))
				continue
			}
			if n != float64(int(n)) || int(n) < q.Min || int(n) > q.Max {
				problems = append(problems,
					fmt.Sprintf("%s: answer must be an integer between %d and %d", q.ID, q.Min, q.Max))
			}
		case model.SurveyText:
			if _, ok := answer.(string); !ok {
				problems = append(problems, fmt.Sprintf("%s: expected text", q.ID))
			}
		}
	}
	for id := range answers {
		if _, ok := known[id]; !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown question", id))
		}
	}
	return problems
}

// HandleSubmitSurvey handles POST /api/survey. A valid submission ends
// the session: the trace buffer gets a final flush, the session record
// is snapshotted, and the participant's performance summary is returned.
func (h *Handlers) HandleSubmitSurvey(w http.ResponseWriter, r *http.Request) {
	data, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req surveyRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if problems := validateSurveyAnswers(h.catalog.Survey, req.Answers); len(problems) > 0 {
		writeErrorFields(w, r, http.StatusBadRequest, model.ErrCodeValidation,
			"survey submission is invalid", problems)
		return
	}

	now := h.now()
	if err := h.research.SaveSurvey(r.Context(), model.SurveyResponse{
		ParticipantID: pid,
		Answers:       req.Answers,
		CompletedAt:   now,
	}); err != nil {
		h.writeInternalError(w, r, "failed to save survey", err)
		return
	}

	h.recorder.Record(pid, model.SurveySubmittedPayload{QuestionCount: len(req.Answers)})

	end := now
	if err := h.store.Update(pid, model.SessionUpdate{EndTime: &end}); err != nil {
		h.writeInternalError(w, r, "failed to close session", err)
		return
	}

	h.flusher.Final(r.Context(), pid)

	if final, ok := h.store.Get(pid); ok {
		if err := h.research.SaveSessionSnapshot(r.Context(), final); err != nil {
			h.logger.Error("failed to snapshot session", "participant_id", pid, "error", err)
		}
		data = final
	}

	// Whatever the final flush left behind is persisted alongside the
	// session record, so a failed last delivery is recoverable from the
	// database instead of dying with the in-memory buffer.
	residue := h.store.BufferSnapshot(pid)
	if err := h.research.SaveTraceBufferSnapshot(r.Context(), pid, residue); err != nil {
		h.logger.Error("failed to snapshot trace buffer", "participant_id", pid, "error", err)
	}

	perf := scoring.Aggregate(data.TicketResponses, h.tickets.ByID)
	writeJSON(w, r, http.StatusOK, surveyResponse{Performance: perf})
}

type contactRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// HandleSubmitContact handles POST /api/contact.
func (h *Handlers) HandleSubmitContact(w http.ResponseWriter, r *http.Request) {
	_, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req contactRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "a valid email is required")
		return
	}

	if err := h.research.SaveContact(r.Context(), model.ContactRequest{
		ParticipantID: pid,
		Email:         email,
		Message:       strings.TrimSpace(req.Message),
		SubmittedAt:   h.now(),
	}); err != nil {
		h.writeInternalError(w, r, "failed to save contact request", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]string{"status": "received"})
}
