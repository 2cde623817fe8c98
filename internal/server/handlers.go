package server

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/tud-hci/ticketlab/internal/assistant"
	"github.com/tud-hci/ticketlab/internal/auth"
	"github.com/tud-hci/ticketlab/internal/catalog"
	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/session"
	"github.com/tud-hci/ticketlab/internal/storage"
	"github.com/tud-hci/ticketlab/internal/tickets"
	"github.com/tud-hci/ticketlab/internal/trace"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store     *session.Store
	tickets   *tickets.Service
	catalog   *catalog.Catalog
	recorder  *trace.Recorder
	flusher   *trace.Flusher
	research  *storage.Store
	assistant assistant.Provider
	knowledge KnowledgeService
	auth      *auth.Manager
	logger    *slog.Logger

	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	experimentDuration  time.Duration
	now                 func() time.Time
	intn                func(n int) int
}

// KnowledgeService is the slice of the knowledge base the API exposes.
type KnowledgeService interface {
	Tree() []model.KnowledgeNode
	Search(query string) []model.KnowledgeNode
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Now, Intn.
type HandlersDeps struct {
	Store     *session.Store
	Tickets   *tickets.Service
	Catalog   *catalog.Catalog
	Recorder  *trace.Recorder
	Flusher   *trace.Flusher
	Research  *storage.Store
	Assistant assistant.Provider
	Knowledge KnowledgeService
	Auth      *auth.Manager
	Logger    *slog.Logger

	Version             string
	MaxRequestBodyBytes int64
	ExperimentDuration  time.Duration
	Now                 func() time.Time
	Intn                func(n int) int // Condition assignment; defaults to math/rand.
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	intn := d.Intn
	if intn == nil {
		intn = rand.IntN
	}
	return &Handlers{
		store:               d.Store,
		tickets:             d.Tickets,
		catalog:             d.Catalog,
		recorder:            d.Recorder,
		flusher:             d.Flusher,
		research:            d.Research,
		assistant:           d.Assistant,
		knowledge:           d.Knowledge,
		auth:                d.Auth,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		experimentDuration:  d.ExperimentDuration,
		now:                 now,
		intn:                intn,
	}
}

// participantID resolves the participant a request acts for.
func participantID(r *http.Request) string {
	if pid := r.Header.Get("X-Participant-ID"); pid != "" {
		return pid
	}
	return r.URL.Query().Get("participant_id")
}

// requireSession loads the session for the request's participant, or
// writes the 404 the client treats as "redirect to consent".
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) (model.SessionData, string, bool) {
	pid := participantID(r)
	if pid == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "missing participant id")
		return model.SessionData{}, "", false
	}
	data, ok := h.store.Get(pid)
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeSessionMissing, "no active session for participant")
		return model.SessionData{}, "", false
	}
	return data, pid, true
}

// sessionView is the session payload returned to the client.
type sessionView struct {
	Session            model.SessionData        `json:"session"`
	Tickets            []model.TicketWithStatus `json:"tickets"`
	ExperimentDuration time.Duration            `json:"experimentDuration"`
}

type createSessionRequest struct {
	ParticipantID string           `json:"participantId"`
	Group         model.Group      `json:"group,omitempty"`
	TimingMode    model.TimingMode `json:"timingMode,omitempty"`
}

// HandleCreateSession handles POST /api/session.
// Group and timing mode are assigned at random unless pinned.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.ParticipantID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "participantId is required")
		return
	}
	group := req.Group
	if group == "" {
		group = model.Groups[h.intn(len(model.Groups))]
	} else if !group.Valid() {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "unknown group")
		return
	}
	mode := req.TimingMode
	if mode == "" {
		mode = model.TimingImmediate
		if h.intn(2) == 1 {
			mode = model.TimingStaggered
		}
	} else if !mode.Valid() {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "unknown timing mode")
		return
	}

	data, err := h.store.Create(req.ParticipantID, group, mode)
	if err != nil {
		if errors.Is(err, session.ErrExists) {
			writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "session already exists for participant")
			return
		}
		h.writeInternalError(w, r, "failed to create session", err)
		return
	}

	board := h.tickets.Initialize(mode, data.StartTime)
	if err := h.store.UpdateTickets(req.ParticipantID, func([]model.TicketWithStatus) []model.TicketWithStatus {
		return board
	}); err != nil {
		h.writeInternalError(w, r, "failed to initialize tickets", err)
		return
	}

	h.recorder.Record(req.ParticipantID, model.ExperimentStartedPayload{
		ParticipantID: req.ParticipantID,
		Group:         group,
		TimingMode:    mode,
	})
	h.logger.Info("session created",
		"participant_id", req.ParticipantID, "group", group, "timing_mode", mode)

	writeJSON(w, r, http.StatusCreated, sessionView{
		Session:            data,
		Tickets:            board,
		ExperimentDuration: h.experimentDuration,
	})
}

// HandleGetSession handles GET /api/session.
func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	data, pid, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	board, _ := h.store.Tickets(pid)
	writeJSON(w, r, http.StatusOK, sessionView{
		Session:            data,
		Tickets:            board,
		ExperimentDuration: h.experimentDuration,
	})
}

// HandleDeleteSession handles DELETE /api/session/{participant_id}.
// Operator reset; wipes all in-memory state for the participant.
func (h *Handlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if h.auth.Enabled() && !h.authorizeAdmin(w, r) {
		return
	}
	pid := r.PathValue("participant_id")
	if _, ok := h.store.Get(pid); !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no session for participant")
		return
	}
	h.store.Clear(pid)
	h.logger.Info("session cleared", "participant_id", pid)
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "cleared"})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, msg)
}
