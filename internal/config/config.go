// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads Flywatch's runtime configuration from the
// process environment. There is no configuration file: every setting
// named in the external interface is a flat environment variable,
// read once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/flywatch/flywatch/internal/flyerr"
)

// Config holds every environment-derived setting Flywatch needs to
// run. Fields are grouped by the concern they configure.
type Config struct {
	// Bus identifies the target application's message-bus subscription.
	AppName  string
	OrgSlug  string
	BusToken string
	BusURL   string

	// ServiceBearerToken, if non-empty, is required on every endpoint
	// except /health, /healthz, /ready.
	ServiceBearerToken string

	// LLM configures the external chat-completion endpoint. LLMAPIKey
	// empty means /chat is disabled (501).
	LLMAPIKey   string
	LLMEndpoint string
	LLMModel    string

	// LogBufferMaxEntries and LogBufferMaxAge bound the rolling log
	// window (§3, RollingBuffer state).
	LogBufferMaxEntries int
	LogBufferMaxAge     time.Duration

	// Port is the HTTP listen port.
	Port int

	// LogLevel controls the structured logger's minimum level.
	LogLevel string

	// MetricsInterval is the tick period for the metrics Collector (C5).
	MetricsInterval time.Duration

	// ChatTimeout bounds one POST /chat request end to end (§5).
	ChatTimeout time.Duration
}

// Load reads Config from the process environment, applying defaults
// for optional variables and returning a flyerr.Error of KindConfig if
// a required variable is missing or a numeric variable fails to parse.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceBearerToken: os.Getenv("AUTH_TOKEN"),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		LLMEndpoint:        envOrDefault("LLM_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		LLMModel:           envOrDefault("LLM_MODEL", "gpt-4o-mini"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		BusURL:             envOrDefault("NATS_URL", "nats://localhost:4222"),
	}

	var err error
	if cfg.AppName, err = requireEnv("FLY_APP_NAME"); err != nil {
		return nil, err
	}
	if cfg.OrgSlug, err = requireEnv("FLY_ORG_SLUG"); err != nil {
		return nil, err
	}
	if cfg.BusToken, err = requireEnv("NATS_TOKEN"); err != nil {
		return nil, err
	}

	if cfg.LogBufferMaxEntries, err = intEnv("LOG_BUFFER_MAX_ENTRIES", 10000); err != nil {
		return nil, err
	}
	maxAgeMinutes, err := intEnv("LOG_BUFFER_MAX_AGE_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.LogBufferMaxAge = time.Duration(maxAgeMinutes) * time.Minute

	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, flyerr.New(flyerr.KindConfig, "PORT %d out of range 1-65535", cfg.Port)
	}

	metricsIntervalSeconds, err := intEnv("METRICS_INTERVAL_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	cfg.MetricsInterval = time.Duration(metricsIntervalSeconds) * time.Second

	chatTimeoutSeconds, err := intEnv("CHAT_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.ChatTimeout = time.Duration(chatTimeoutSeconds) * time.Second

	return cfg, nil
}

// ChatEnabled reports whether /chat should be wired up.
func (c *Config) ChatEnabled() bool { return c.LLMAPIKey != "" }

func requireEnv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", flyerr.New(flyerr.KindConfig, "missing required environment variable %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, flyerr.Wrap(flyerr.KindConfig, err, "%s: %s", name, fmt.Sprintf("invalid integer %q", raw))
	}
	return value, nil
}
