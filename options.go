package ticketlab

import (
	"log/slog"
	"time"

	"github.com/tud-hci/ticketlab/internal/assistant"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	port      int
	dbPath    string
	logger    *slog.Logger
	version   string
	assistant assistant.Provider
	now       func() time.Time
}

// WithPort overrides the TCP port from config (TICKETLAB_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDBPath overrides the SQLite database path from config
// (TICKETLAB_DB_PATH env var).
func WithDBPath(path string) Option {
	return func(o *resolvedOptions) { o.dbPath = path }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint
// and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithAssistant replaces the auto-selected chat backend (OpenAI when an
// API key is configured, the scripted fallback otherwise).
func WithAssistant(p assistant.Provider) Option {
	return func(o *resolvedOptions) { o.assistant = p }
}

// WithClock overrides the wall clock. Used by tests that pin or advance
// session time.
func WithClock(now func() time.Time) Option {
	return func(o *resolvedOptions) { o.now = now }
}
