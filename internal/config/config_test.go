package config

import (
	"testing"
	"time"
)

func TestEnvStr(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	if v := envStr("TEST_STR", "fallback"); v != "value" {
		t.Fatalf("expected value, got %q", v)
	}
	if v := envStr("TEST_STR_MISSING", "fallback"); v != "fallback" {
		t.Fatalf("expected fallback, got %q", v)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if v := envInt("TEST_INT", 0); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	// Unparseable values fall back to the default.
	t.Setenv("TEST_INT_BAD", "abc")
	if v := envInt("TEST_INT_BAD", 7); v != 7 {
		t.Fatalf("expected fallback 7, got %d", v)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	if v := envDuration("TEST_DUR", 0); v != 5*time.Second {
		t.Fatalf("expected 5s, got %s", v)
	}
	t.Setenv("TEST_DUR_BAD", "five-seconds")
	if v := envDuration("TEST_DUR_BAD", time.Minute); v != time.Minute {
		t.Fatalf("expected fallback 1m, got %s", v)
	}
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed with defaults, got: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Fatalf("expected default sync interval 30s, got %s", cfg.SyncInterval)
	}
	if cfg.UnlockCheckInterval != time.Second {
		t.Fatalf("expected default unlock interval 1s, got %s", cfg.UnlockCheckInterval)
	}
	if cfg.ExperimentDuration != 15*time.Minute {
		t.Fatalf("expected default experiment duration 15m, got %s", cfg.ExperimentDuration)
	}
}

func TestValidateRejectsAdminKeyWithoutSecret(t *testing.T) {
	t.Setenv("TICKETLAB_ADMIN_KEY", "research-key")
	if _, err := Load(); err == nil {
		t.Fatal("expected Load() to fail without a JWT secret")
	}

	t.Setenv("TICKETLAB_JWT_SECRET", "shhh")
	if _, err := Load(); err != nil {
		t.Fatalf("expected Load() to succeed with a JWT secret, got: %v", err)
	}
}

func TestValidateRejectsNonPositiveIntervals(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.SyncInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero sync interval")
	}
}
