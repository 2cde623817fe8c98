package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tud-hci/ticketlab/internal/model"
)

type clientEvent struct {
	ID        string          `json:"id"`
	Type      model.EventType `json:"type"`
	Timestamp *time.Time      `json:"timestamp"`
	Data      map[string]any  `json:"data"`
}

type eventsRequest struct {
	Events []clientEvent `json:"events"`
}

type eventsResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// HandleRecordEvents handles POST /api/events. Client UI events pass
// through the sampling recorder and join the participant's buffer; a
// dropped event is a sampling decision, not an error.
func (h *Handlers) HandleRecordEvents(w http.ResponseWriter, r *http.Request) {
	_, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req eventsRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Events) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "no events in request")
		return
	}

	var resp eventsResponse
	for _, ev := range req.Events {
		if ev.Type == "" {
			resp.Dropped++
			continue
		}
		if h.recorder.Record(pid, model.RawPayload{Type: ev.Type, Data: ev.Data}) {
			resp.Accepted++
		} else {
			resp.Dropped++
		}
	}
	writeJSON(w, r, http.StatusAccepted, resp)
}

type traceDataResponse struct {
	Stored int `json:"stored"`
}

// HandleTraceData handles POST /api/trace-data. The client ships its
// locally buffered trace batch for durable storage; ids carry over so
// redelivery after a lost acknowledgement stays idempotent.
func (h *Handlers) HandleTraceData(w http.ResponseWriter, r *http.Request) {
	_, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	var req eventsRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Events) == 0 {
		writeJSON(w, r, http.StatusOK, traceDataResponse{})
		return
	}

	events := make([]model.TraceEvent, 0, len(req.Events))
	for _, ev := range req.Events {
		if ev.Type == "" {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "event missing type")
			return
		}
		id, err := uuid.Parse(ev.ID)
		if err != nil {
			id = uuid.New()
		}
		ts := h.now()
		if ev.Timestamp != nil {
			ts = *ev.Timestamp
		}
		events = append(events, model.TraceEvent{
			ID:            id,
			Type:          ev.Type,
			Timestamp:     ts,
			ParticipantID: pid,
			Data:          model.RawPayload{Type: ev.Type, Data: ev.Data},
		})
	}

	if err := h.research.AppendEvents(r.Context(), pid, events); err != nil {
		h.writeInternalError(w, r, "failed to store trace batch", err)
		return
	}
	writeJSON(w, r, http.StatusOK, traceDataResponse{Stored: len(events)})
}
