package server

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tud-hci/ticketlab/internal/auth"
	"github.com/tud-hci/ticketlab/internal/model"
)

type adminLoginRequest struct {
	Key string `json:"key"`
}

type adminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleAdminLogin handles POST /api/admin/login, exchanging the
// operator key for a short-lived bearer token.
func (h *Handlers) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Enabled() {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "admin access is not configured")
		return
	}

	var req adminLoginRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	token, expiresAt, err := h.auth.IssueToken(req.Key)
	if err != nil {
		if errors.Is(err, auth.ErrBadKey) {
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid admin key")
			return
		}
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}
	writeJSON(w, r, http.StatusOK, adminLoginResponse{Token: token, ExpiresAt: expiresAt})
}

// authorizeAdmin accepts either a bearer token from HandleAdminLogin or
// the raw operator key in X-Admin-Key.
func (h *Handlers) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !h.auth.Enabled() {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "admin access is not configured")
		return false
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		if err := h.auth.ValidateToken(strings.TrimPrefix(header, "Bearer ")); err == nil {
			return true
		}
	}
	if key := r.Header.Get("X-Admin-Key"); key != "" {
		if err := h.auth.VerifyKey(key); err == nil {
			return true
		}
	}
	writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "admin credentials required")
	return false
}

type exportBundle struct {
	ExportedAt time.Time              `json:"exportedAt"`
	Sessions   []model.SessionData    `json:"sessions"`
	Events     []model.TraceEvent     `json:"events"`
	Surveys    []model.SurveyResponse `json:"surveys"`
	Contacts   []model.ContactRequest `json:"contacts"`
}

// HandleExport handles GET /api/export. format=json (default) returns
// the full research bundle; format=csv returns the flattened event log.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeAdmin(w, r) {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	ctx := r.Context()
	events, err := h.research.AllEvents(ctx)
	if err != nil {
		h.writeInternalError(w, r, "failed to load events", err)
		return
	}

	switch format {
	case "json":
		surveys, err := h.research.Surveys(ctx)
		if err != nil {
			h.writeInternalError(w, r, "failed to load surveys", err)
			return
		}
		contacts, err := h.research.Contacts(ctx)
		if err != nil {
			h.writeInternalError(w, r, "failed to load contacts", err)
			return
		}
		sessions := make([]model.SessionData, 0)
		for _, pid := range h.store.Participants() {
			if data, ok := h.store.Get(pid); ok {
				sessions = append(sessions, data)
			}
		}
		w.Header().Set("Content-Disposition", `attachment; filename="ticketlab-export.json"`)
		writeJSON(w, r, http.StatusOK, exportBundle{
			ExportedAt: h.now(),
			Sessions:   sessions,
			Events:     events,
			Surveys:    surveys,
			Contacts:   contacts,
		})
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="ticketlab-events.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := writeEventCSV(w, events); err != nil {
			h.logger.Error("csv export failed", "error", err)
		}
	default:
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest,
			"format must be json or csv")
	}
}

func writeEventCSV(w http.ResponseWriter, events []model.TraceEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "participant_id", "event_type", "timestamp", "payload"}); err != nil {
		return err
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			payload = []byte("{}")
		}
		if err := cw.Write([]string{
			ev.ID.String(),
			ev.ParticipantID,
			string(ev.Type),
			ev.Timestamp.Format(time.RFC3339Nano),
			string(payload),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type adminStatsResponse struct {
	Sessions       int   `json:"sessions"`
	StoredEvents   int   `json:"storedEvents"`
	BufferedEvents int   `json:"bufferedEvents"`
	FailedSyncs    int64 `json:"failedSyncs"`
}

// HandleAdminStats handles GET /api/admin/stats.
func (h *Handlers) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeAdmin(w, r) {
		return
	}
	count, err := h.research.TotalEventCount(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to count events", err)
		return
	}
	writeJSON(w, r, http.StatusOK, adminStatsResponse{
		Sessions:       len(h.store.Participants()),
		StoredEvents:   count,
		BufferedEvents: h.store.TotalBuffered(),
		FailedSyncs:    h.flusher.FailedSyncs(),
	})
}
