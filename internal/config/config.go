// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Research store.
	DBPath string // SQLite database file; ":memory:" for ephemeral runs.

	// Admin export access.
	AdminKey  string // Static key exchanged for a short-lived export token.
	JWTSecret string // HMAC secret for export tokens.
	JWTExpiry time.Duration

	// Chat assistant settings.
	OpenAIAPIKey  string // Empty falls back to the scripted provider.
	OpenAIModel   string
	OpenAIBaseURL string

	// Study timing.
	SyncInterval        time.Duration // Background trace flush cadence.
	UnlockCheckInterval time.Duration // Staggered-ticket unlock sweep cadence.
	ExperimentDuration  time.Duration // Session length from start to forced end.

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool // Plain-HTTP OTLP export, for local collectors.
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("TICKETLAB_PORT", 8080),
		ReadTimeout:         envDuration("TICKETLAB_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("TICKETLAB_WRITE_TIMEOUT", 30*time.Second),
		DBPath:              envStr("TICKETLAB_DB_PATH", "ticketlab.db"),
		AdminKey:            envStr("TICKETLAB_ADMIN_KEY", ""),
		JWTSecret:           envStr("TICKETLAB_JWT_SECRET", ""),
		JWTExpiry:           envDuration("TICKETLAB_JWT_EXPIRY", 1*time.Hour),
		OpenAIAPIKey:        envStr("OPENAI_API_KEY", ""),
		OpenAIModel:         envStr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:       envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		SyncInterval:        envDuration("TICKETLAB_SYNC_INTERVAL", 30*time.Second),
		UnlockCheckInterval: envDuration("TICKETLAB_UNLOCK_CHECK_INTERVAL", 1*time.Second),
		ExperimentDuration:  envDuration("TICKETLAB_EXPERIMENT_DURATION", 15*time.Minute),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "ticketlab"),
		LogLevel:            envStr("TICKETLAB_LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(envInt("TICKETLAB_MAX_REQUEST_BODY_BYTES", 1*1024*1024)), // 1 MB default
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: TICKETLAB_DB_PATH is required")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("config: TICKETLAB_SYNC_INTERVAL must be positive")
	}
	if c.UnlockCheckInterval <= 0 {
		return fmt.Errorf("config: TICKETLAB_UNLOCK_CHECK_INTERVAL must be positive")
	}
	if c.ExperimentDuration <= 0 {
		return fmt.Errorf("config: TICKETLAB_EXPERIMENT_DURATION must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: TICKETLAB_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.AdminKey != "" && c.JWTSecret == "" {
		return fmt.Errorf("config: TICKETLAB_JWT_SECRET is required when an admin key is set")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
