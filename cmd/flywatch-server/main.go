// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command flywatch-server runs the Flywatch log-and-metrics relay for
// a single deployed application: it subscribes to the application's
// bus, holds a rolling window of recent log records, samples system
// metrics on a fixed tick, and serves both over HTTP (REST, SSE, and
// WebSocket) alongside an optional LLM-backed chat agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/flywatch/flywatch/internal/agent"
	"github.com/flywatch/flywatch/internal/clock"
	"github.com/flywatch/flywatch/internal/config"
	"github.com/flywatch/flywatch/internal/httpapi"
	"github.com/flywatch/flywatch/internal/ingest"
	"github.com/flywatch/flywatch/internal/llm"
	"github.com/flywatch/flywatch/internal/metrics"
	"github.com/flywatch/flywatch/internal/state"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	sampler := metrics.NewPlatformSampler()
	sharedState := state.New(sampler, cfg.LogBufferMaxEntries, cfg.LogBufferMaxAge, clk, logger)

	bus := ingest.NewNATSBus(cfg.BusURL, cfg.BusToken)
	ingestor := ingest.New(
		bus,
		cfg.AppName,
		cfg.OrgSlug,
		sharedState.Buffer,
		sharedState.LogBroadcaster,
		sharedState,
		ingest.Counters{
			MessagesForwarded:  sharedState.IncMessagesForwarded,
			SubscriptionErrors: sharedState.IncSubscriptionErrors,
		},
		clk,
		logger.With("component", "ingest"),
	)

	var chatAgent *agent.Agent
	var usageTracker *agent.UsageTracker
	if cfg.ChatEnabled() {
		provider := llm.NewOpenAIClient(cfg.LLMEndpoint, cfg.LLMAPIKey)
		usageTracker = agent.NewUsageTracker(clk)
		chatAgent = agent.New(provider, sharedState.Buffer, sharedState.Metrics, cfg.LLMModel, clk, usageTracker)
		logger.Info("chat agent enabled", "model", cfg.LLMModel)
	} else {
		logger.Info("chat agent disabled: no LLM_API_KEY set")
	}

	server := httpapi.New(httpapi.Config{
		State:       sharedState,
		Agent:       chatAgent,
		Usage:       usageTracker,
		AuthToken:   cfg.ServiceBearerToken,
		ChatTimeout: cfg.ChatTimeout,
		Logger:      logger.With("component", "httpapi"),
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ingestor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sharedState.Metrics.Run(ctx, cfg.MetricsInterval)
	}()

	httpErr := serveHTTP(ctx, fmt.Sprintf(":%d", cfg.Port), server.Handler(), logger.With("component", "http"))

	// serveHTTP can return before ctx is cancelled (a listen/serve
	// failure, not a shutdown signal); stop() ensures the background
	// ingest and metrics loops still unwind instead of leaking.
	stop()
	wg.Wait()
	return httpErr
}

// serveHTTP runs an http.Server bound to address until ctx is
// cancelled, then drains in-flight requests for up to 10 seconds
// before returning.
func serveHTTP(ctx context.Context, address string, handler http.Handler, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("http server listening", "address", listener.Addr().String())

	serveDone := make(chan error, 1)
	go func() {
		err := httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		logger.Info("http server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Info("http server stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
