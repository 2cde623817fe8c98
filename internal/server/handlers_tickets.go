package server

import (
	"net/http"
	"time"

	"github.com/tud-hci/ticketlab/internal/agent"
	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/scoring"
	"github.com/tud-hci/ticketlab/internal/tickets"
)

// HandleGetTickets handles GET /api/tickets. Each read sweeps the
// board for staggered unlocks before returning it.
func (h *Handlers) HandleGetTickets(w http.ResponseWriter, r *http.Request) {
	data, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var unlocked []string
	err := h.store.UpdateTickets(pid, func(board []model.TicketWithStatus) []model.TicketWithStatus {
		next := h.tickets.CheckUnlocks(board, data.StartTime)
		for i := range board {
			if board[i].Status == model.StatusLocked && next[i].Status == model.StatusAvailable {
				unlocked = append(unlocked, next[i].ID)
			}
		}
		return next
	})
	if err != nil {
		h.writeInternalError(w, r, "failed to refresh tickets", err)
		return
	}

	elapsed := int(h.now().Sub(data.StartTime).Seconds())
	for _, id := range unlocked {
		h.recorder.Record(pid, model.TicketUnlockedPayload{TicketID: id, ElapsedSeconds: elapsed})
	}

	board, _ := h.store.Tickets(pid)
	writeJSON(w, r, http.StatusOK, board)
}

// boardTicket finds a ticket on the participant's current board.
func boardTicket(board []model.TicketWithStatus, id string) (model.TicketWithStatus, bool) {
	for _, t := range board {
		if t.ID == id {
			return t, true
		}
	}
	return model.TicketWithStatus{}, false
}

// HandleOpenTicket handles POST /api/tickets/{ticket_id}/open.
func (h *Handlers) HandleOpenTicket(w http.ResponseWriter, r *http.Request) {
	_, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	id := r.PathValue("ticket_id")

	board, _ := h.store.Tickets(pid)
	current, found := boardTicket(board, id)
	if !found {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "unknown ticket")
		return
	}
	if current.Status != model.StatusAvailable {
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict,
			"ticket is not available to open")
		return
	}

	at := h.now()
	if err := h.store.UpdateTickets(pid, func(b []model.TicketWithStatus) []model.TicketWithStatus {
		return h.tickets.Transition(b, id, model.StatusInProgress, at)
	}); err != nil {
		h.writeInternalError(w, r, "failed to open ticket", err)
		return
	}

	h.recorder.Record(pid, model.TicketOpenedPayload{TicketID: id})

	board, _ = h.store.Tickets(pid)
	t, _ := boardTicket(board, id)
	writeJSON(w, r, http.StatusOK, t)
}

// HandleReleaseTicket handles POST /api/tickets/{ticket_id}/release.
// Returns an in-progress ticket to the board without resolving it.
func (h *Handlers) HandleReleaseTicket(w http.ResponseWriter, r *http.Request) {
	_, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	id := r.PathValue("ticket_id")

	board, _ := h.store.Tickets(pid)
	current, found := boardTicket(board, id)
	if !found {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "unknown ticket")
		return
	}
	if current.Status != model.StatusInProgress {
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "ticket is not in progress")
		return
	}

	at := h.now()
	if err := h.store.UpdateTickets(pid, func(b []model.TicketWithStatus) []model.TicketWithStatus {
		return h.tickets.Transition(b, id, model.StatusAvailable, at)
	}); err != nil {
		h.writeInternalError(w, r, "failed to release ticket", err)
		return
	}

	board, _ = h.store.Tickets(pid)
	t, _ := boardTicket(board, id)
	writeJSON(w, r, http.StatusOK, t)
}

type resolveRequest struct {
	Decisions        []model.TicketDecision `json:"decisions"`
	OutcomeID        string                 `json:"outcomeId"`
	Fields           map[string]string      `json:"fields"`
	CustomerResponse string                 `json:"customerResponse"`
}

type resolveResponse struct {
	Response model.TicketResponse   `json:"response"`
	Score    model.TicketScore      `json:"score"`
	Ticket   model.TicketWithStatus `json:"ticket"`
}

// HandleResolveTicket handles POST /api/tickets/{ticket_id}/resolve.
func (h *Handlers) HandleResolveTicket(w http.ResponseWriter, r *http.Request) {
	_, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	id := r.PathValue("ticket_id")

	var req resolveRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	ticket, found := h.tickets.ByID(id)
	if !found {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "unknown ticket")
		return
	}
	board, _ := h.store.Tickets(pid)
	current, onBoard := boardTicket(board, id)
	if !onBoard {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "ticket not on board")
		return
	}
	if current.Status != model.StatusInProgress {
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "ticket is not in progress")
		return
	}

	at := h.now()
	resp := model.TicketResponse{
		TicketID:         id,
		Decisions:        req.Decisions,
		Fields:           req.Fields,
		CustomerResponse: req.CustomerResponse,
		CompletedAt:      at,
	}
	// The outcome is derived from the route the decisions actually walk;
	// the client's claimed outcomeId is ignored so a mismatched claim
	// cannot dodge the wrong-outcome penalty.
	resp = tickets.NormalizeResponse(h.catalog.Tree, resp)
	if current.StartedAt != nil {
		resp.TimeToComplete = at.Sub(*current.StartedAt)
	}

	if problems := tickets.ValidateResponse(h.catalog.Tree, resp); len(problems) > 0 {
		h.recorder.Record(pid, model.FormValidationErrorPayload{TicketID: id, Errors: problems})
		writeErrorFields(w, r, http.StatusBadRequest, model.ErrCodeValidation,
			"response is incomplete", problems)
		return
	}

	if err := h.store.AppendResponse(pid, resp); err != nil {
		h.writeInternalError(w, r, "failed to record response", err)
		return
	}
	if err := h.store.UpdateTickets(pid, func(b []model.TicketWithStatus) []model.TicketWithStatus {
		return h.tickets.Transition(b, id, model.StatusCompleted, at)
	}); err != nil {
		h.writeInternalError(w, r, "failed to complete ticket", err)
		return
	}

	h.recorder.Record(pid, model.CustomerResponseSentPayload{
		TicketID:       id,
		ResponseLength: len(req.CustomerResponse),
	})
	h.recorder.Record(pid, model.TicketClosedPayload{
		TicketID:       id,
		OutcomeID:      resp.OutcomeID,
		TimeToComplete: resp.TimeToComplete,
	})

	score := scoring.Score(resp, ticket)
	h.logger.Info("ticket resolved",
		"participant_id", pid,
		"ticket_id", id,
		"outcome_id", resp.OutcomeID,
		"quality_score", score.QualityScore,
		"time_to_complete", resp.TimeToComplete.Round(time.Second))

	board, _ = h.store.Tickets(pid)
	t, _ := boardTicket(board, id)
	writeJSON(w, r, http.StatusOK, resolveResponse{Response: resp, Score: score, Ticket: t})
}

// agentView is the scripted replay returned for one ticket.
type agentView struct {
	Steps            []model.AgentStep `json:"steps"`
	CompleteResponse string            `json:"completeResponse,omitempty"`
}

// HandleAgentSteps handles GET /api/tickets/{ticket_id}/agent.
// Only the agent-assisted conditions see the replay; the autonomous
// condition also receives the finished customer reply.
func (h *Handlers) HandleAgentSteps(w http.ResponseWriter, r *http.Request) {
	data, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	if data.Group != model.GroupAgentConfirm && data.Group != model.GroupAgentAuto {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
			"agent replay is not enabled for this session")
		return
	}

	id := r.PathValue("ticket_id")
	ticket, found := h.tickets.ByID(id)
	if !found {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "unknown ticket")
		return
	}

	steps := agent.Steps(h.catalog.Tree, ticket)
	view := agentView{Steps: steps}
	if data.Group == model.GroupAgentAuto {
		view.CompleteResponse = agent.CompleteResponse(ticket)
	}

	h.recorder.Record(pid, model.AgentStartedPayload{TicketID: id, StepCount: len(steps)})
	writeJSON(w, r, http.StatusOK, view)
}
