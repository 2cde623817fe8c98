package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tud-hci/ticketlab/internal/assistant"
	"github.com/tud-hci/ticketlab/internal/auth"
	"github.com/tud-hci/ticketlab/internal/catalog"
	"github.com/tud-hci/ticketlab/internal/session"
	"github.com/tud-hci/ticketlab/internal/storage"
	"github.com/tud-hci/ticketlab/internal/tickets"
	"github.com/tud-hci/ticketlab/internal/trace"
)

// Server is the ticketlab HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. Auth may be disabled (no admin key); everything else is
// required.
type ServerConfig struct {
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

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	ExperimentDuration  time.Duration

	// Test seams; both default to the real thing.
	Now  func() time.Time
	Intn func(n int) int
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		Tickets:             cfg.Tickets,
		Catalog:             cfg.Catalog,
		Recorder:            cfg.Recorder,
		Flusher:             cfg.Flusher,
		Research:            cfg.Research,
		Assistant:           cfg.Assistant,
		Knowledge:           cfg.Knowledge,
		Auth:                cfg.Auth,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		ExperimentDuration:  cfg.ExperimentDuration,
		Now:                 cfg.Now,
		Intn:                cfg.Intn,
	})

	mux := http.NewServeMux()

	// Session lifecycle.
	mux.HandleFunc("POST /api/session", h.HandleCreateSession)
	mux.HandleFunc("GET /api/session", h.HandleGetSession)
	mux.HandleFunc("DELETE /api/session/{participant_id}", h.HandleDeleteSession)

	// Ticket board.
	mux.HandleFunc("GET /api/tickets", h.HandleGetTickets)
	mux.HandleFunc("POST /api/tickets/{ticket_id}/open", h.HandleOpenTicket)
	mux.HandleFunc("POST /api/tickets/{ticket_id}/release", h.HandleReleaseTicket)
	mux.HandleFunc("POST /api/tickets/{ticket_id}/resolve", h.HandleResolveTicket)
	mux.HandleFunc("GET /api/tickets/{ticket_id}/agent", h.HandleAgentSteps)

	// Trace ingestion.
	mux.HandleFunc("POST /api/events", h.HandleRecordEvents)
	mux.HandleFunc("POST /api/trace-data", h.HandleTraceData)

	// Chat assistant.
	mux.HandleFunc("POST /api/chat", h.HandleChat)

	// Knowledge base.
	mux.HandleFunc("GET /api/knowledge", h.HandleKnowledgeTree)
	mux.HandleFunc("GET /api/knowledge/search", h.HandleKnowledgeSearch)

	// Post-study.
	mux.HandleFunc("POST /api/survey", h.HandleSubmitSurvey)
	mux.HandleFunc("POST /api/contact", h.HandleSubmitContact)

	// Operator endpoints.
	mux.HandleFunc("POST /api/admin/login", h.HandleAdminLogin)
	mux.HandleFunc("GET /api/admin/stats", h.HandleAdminStats)
	mux.HandleFunc("GET /api/export", h.HandleExport)

	// Health (no auth).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Handlers returns the underlying Handlers, for tests that need to pin
// the clock or condition assignment.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
