// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FLY_APP_NAME", "myapp")
	t.Setenv("FLY_ORG_SLUG", "myorg")
	t.Setenv("NATS_TOKEN", "nats-secret")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.LogBufferMaxEntries != 10000 {
		t.Errorf("max entries = %d, want 10000", cfg.LogBufferMaxEntries)
	}
	if cfg.LogBufferMaxAge != 30*time.Minute {
		t.Errorf("max age = %v, want 30m", cfg.LogBufferMaxAge)
	}
	if cfg.MetricsInterval != 5*time.Second {
		t.Errorf("metrics interval = %v, want 5s", cfg.MetricsInterval)
	}
	if cfg.ChatTimeout != 60*time.Second {
		t.Errorf("chat timeout = %v, want 60s", cfg.ChatTimeout)
	}
	if cfg.ChatEnabled() {
		t.Error("expected chat disabled with no LLM_API_KEY")
	}
	if cfg.BusURL != "nats://localhost:4222" {
		t.Errorf("bus url = %q", cfg.BusURL)
	}
}

func TestLoadMissingRequiredVarFails(t *testing.T) {
	t.Setenv("FLY_APP_NAME", "")
	t.Setenv("FLY_ORG_SLUG", "")
	t.Setenv("NATS_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error with no required env vars set")
	}
}

func TestLoadChatEnabledWithAPIKey(t *testing.T) {
	setRequired(t)
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.ChatEnabled() {
		t.Error("expected chat enabled with LLM_API_KEY set")
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "99999")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoadRejectsNonNumericEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_BUFFER_MAX_ENTRIES", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric LOG_BUFFER_MAX_ENTRIES")
	}
}
