package server

import (
	"net/http"

	"github.com/tud-hci/ticketlab/internal/assistant"
	"github.com/tud-hci/ticketlab/internal/model"
)

type chatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
	TicketID string              `json:"ticketId,omitempty"`
}

type chatResponse struct {
	Message  model.ChatMessage `json:"message"`
	Provider string            `json:"provider"`
}

// HandleChat handles POST /api/chat. The final message must come from
// the participant; earlier turns are passed along as history.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	data, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	if data.Group != model.GroupChatAssisted {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
			"chat assistance is not enabled for this session")
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "no messages in request")
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != model.ChatRoleUser {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest,
			"last message must be from the user")
		return
	}

	areq := assistant.Request{Messages: req.Messages}
	if req.TicketID != "" {
		if ticket, found := h.tickets.ByID(req.TicketID); found {
			areq.Ticket = &ticket
		}
	}

	h.recorder.Record(pid, model.ChatMessagePayload{
		TicketID:      req.TicketID,
		MessageLength: len(last.Content),
	})

	reply, err := h.assistant.Reply(r.Context(), areq)
	if err != nil {
		h.recorder.Record(pid, model.ChatResponsePayload{TicketID: req.TicketID, Failed: true})
		h.logger.Error("chat reply failed",
			"participant_id", pid, "provider", h.assistant.Name(), "error", err)
		writeError(w, r, http.StatusBadGateway, model.ErrCodeInternal,
			"assistant is temporarily unavailable")
		return
	}

	h.recorder.Record(pid, model.ChatResponsePayload{
		TicketID:       req.TicketID,
		ResponseLength: len(reply),
	})

	writeJSON(w, r, http.StatusOK, chatResponse{
		Message:  model.ChatMessage{Role: model.ChatRoleAssistant, Content: reply, Timestamp: h.now()},
		Provider: h.assistant.Name(),
	})
}
