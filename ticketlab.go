// Package ticketlab is the public API for embedding the ticketlab study
// server.
//
// The study runner constructs and runs the server:
//
//	app, err := ticketlab.New(
//	    ticketlab.WithVersion(version),
//	    ticketlab.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: ticketlab (root)
// imports internal/*, but internal/* never imports ticketlab (root).
package ticketlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/tud-hci/ticketlab/internal/assistant"
	"github.com/tud-hci/ticketlab/internal/auth"
	"github.com/tud-hci/ticketlab/internal/catalog"
	"github.com/tud-hci/ticketlab/internal/config"
	"github.com/tud-hci/ticketlab/internal/knowledge"
	"github.com/tud-hci/ticketlab/internal/model"
	"github.com/tud-hci/ticketlab/internal/server"
	"github.com/tud-hci/ticketlab/internal/session"
	"github.com/tud-hci/ticketlab/internal/storage"
	"github.com/tud-hci/ticketlab/internal/telemetry"
	"github.com/tud-hci/ticketlab/internal/tickets"
	"github.com/tud-hci/ticketlab/internal/trace"
)

// App is the ticketlab server lifecycle. Construct with New(), run with
// Run(). App has no public fields; use New() options to configure it.
type App struct {
	cfg          config.Config
	research     *storage.Store
	store        *session.Store
	tickets      *tickets.Service
	recorder     *trace.Recorder
	flusher      *trace.Flusher
	srv          *server.Server
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
	now          func() time.Time

	mu      sync.Mutex
	expired map[string]bool
}

// New initialises the ticketlab server. It opens the database, loads the
// ticket catalog and knowledge base, wires all subsystems, and returns a
// ready-to-run App. It does NOT start any goroutines or accept HTTP
// connections; call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	version := o.version
	if version == "" {
		version = "dev"
	}
	now := o.now
	if now == nil {
		now = time.Now
	}

	logger.Info("ticketlab starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	research, err := storage.Open(cfg.DBPath)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		_ = research.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("catalog: %w", err)
	}

	kb, err := knowledge.New(knowledge.Embedded())
	if err != nil {
		_ = research.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("knowledge: %w", err)
	}

	store := session.NewStore(now)
	ticketSvc := tickets.New(cat.Tickets, now)
	recorder := trace.NewRecorder(store, trace.DefaultSampling(), logger, now)
	flusher := trace.NewFlusher(store, research, recorder, logger, cfg.SyncInterval)

	provider := o.assistant
	if provider == nil {
		provider = newAssistantProvider(cfg, kb, logger)
	}

	authMgr := auth.NewManager(cfg.AdminKey, cfg.JWTSecret, cfg.JWTExpiry, now)
	if !authMgr.Enabled() {
		logger.Warn("admin access disabled (no TICKETLAB_ADMIN_KEY)")
	}

	srv := server.New(server.ServerConfig{
		Store:               store,
		Tickets:             ticketSvc,
		Catalog:             cat,
		Recorder:            recorder,
		Flusher:             flusher,
		Research:            research,
		Assistant:           provider,
		Knowledge:           kb,
		Auth:                authMgr,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		ExperimentDuration:  cfg.ExperimentDuration,
		Now:                 now,
	})

	return &App{
		cfg:          cfg,
		research:     research,
		store:        store,
		tickets:      ticketSvc,
		recorder:     recorder,
		flusher:      flusher,
		srv:          srv,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
		now:          now,
		expired:      make(map[string]bool),
	}, nil
}

// newAssistantProvider selects the chat backend. OpenAI-compatible when an
// API key is configured, the scripted fallback otherwise so the
// chat-assisted condition works offline.
func newAssistantProvider(cfg config.Config, kb *knowledge.Service, logger *slog.Logger) assistant.Provider {
	if cfg.OpenAIAPIKey == "" {
		logger.Info("assistant provider: scripted (no OPENAI_API_KEY)")
		return assistant.NewScripted()
	}

	var docs []assistant.Document
	for _, d := range kb.Documents() {
		docs = append(docs, assistant.Document{Title: d.Title, Content: d.Markdown})
	}
	opts := []assistant.OpenAIOption{
		assistant.WithModel(cfg.OpenAIModel),
		assistant.WithKnowledge(docs),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, assistant.WithBaseURL(cfg.OpenAIBaseURL))
	}
	logger.Info("assistant provider: openai", "model", cfg.OpenAIModel)
	return assistant.NewOpenAI(cfg.OpenAIAPIKey, opts...)
}

// Run starts the background sync and unlock loops and the HTTP server,
// then blocks until ctx is cancelled or a fatal server error occurs. On
// return, Shutdown has been called; callers should not call it again.
func (a *App) Run(ctx context.Context) error {
	a.flusher.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.unlockLoop(gctx)
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return err
	}

	_ = g.Wait()
	return a.Shutdown(context.Background())
}

// unlockLoop periodically sweeps every active session for staggered
// ticket unlocks and experiment expiry, so those events are recorded
// even when the participant's client stops polling.
func (a *App) unlockLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.UnlockCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweepSessions()
		}
	}
}

func (a *App) sweepSessions() {
	for _, pid := range a.store.Participants() {
		data, ok := a.store.Get(pid)
		if !ok || data.EndTime != nil {
			continue
		}

		var unlocked []string
		err := a.store.UpdateTickets(pid, func(board []model.TicketWithStatus) []model.TicketWithStatus {
			next := a.tickets.CheckUnlocks(board, data.StartTime)
			for i := range board {
				if board[i].Status == model.StatusLocked && next[i].Status == model.StatusAvailable {
					unlocked = append(unlocked, next[i].ID)
				}
			}
			return next
		})
		if err != nil {
			continue
		}

		elapsed := int(a.now().Sub(data.StartTime).Seconds())
		for _, id := range unlocked {
			a.recorder.Record(pid, model.TicketUnlockedPayload{TicketID: id, ElapsedSeconds: elapsed})
		}

		if a.now().Sub(data.StartTime) >= a.cfg.ExperimentDuration && !a.markExpired(pid) {
			completed := 0
			board, _ := a.store.Tickets(pid)
			for _, t := range board {
				if t.Status == model.StatusCompleted {
					completed++
				}
			}
			a.recorder.Record(pid, model.ExperimentTimeExpiredPayload{
				CompletedTickets: completed,
				TotalTickets:     len(board),
			})
			a.logger.Info("experiment time expired",
				"participant_id", pid, "completed_tickets", completed)
		}
	}
}

// markExpired reports whether the participant was already marked and
// marks them otherwise.
func (a *App) markExpired(pid string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.expired[pid] {
		return true
	}
	a.expired[pid] = true
	return false
}

// Shutdown performs a three-phase graceful shutdown:
// (1) stop accepting HTTP requests and drain in-flight,
// (2) drain buffered trace events to the database,
// (3) close the database and OTEL provider.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("ticketlab shutting down")

	httpCtx, httpCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}
	httpCancel()

	drainCtx, drainCancel := context.WithTimeout(ctx, 10*time.Second)
	a.flusher.Drain(drainCtx)
	drainCancel()

	if err := a.research.Close(); err != nil {
		a.logger.Error("storage close error", "error", err)
	}
	_ = a.otelShutdown(context.Background())

	a.logger.Info("ticketlab stopped")
	return nil
}
