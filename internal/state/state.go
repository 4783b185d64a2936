// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package state owns SharedState, the single process-wide singleton
// (C8) that every other component is constructed against: the rolling
// log buffer, the log and metrics broadcasters, and the counter/gauge
// set the metrics collector and ingestor both touch.
package state

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/flywatch/flywatch/internal/broadcast"
	"github.com/flywatch/flywatch/internal/buffer"
	"github.com/flywatch/flywatch/internal/clock"
	"github.com/flywatch/flywatch/internal/metrics"
	"github.com/flywatch/flywatch/internal/record"
)

// SharedState is the only singleton in the process. C2 (the
// RollingBuffer) is the only mutex-guarded state it holds; everything
// else here is atomic counters or a cheaply-cloned Broadcaster handle.
// No component reaches outside SharedState for shared state of its
// own.
type SharedState struct {
	Buffer         *buffer.RollingBuffer
	LogBroadcaster *broadcast.Broadcaster[record.Record]
	Metrics        *metrics.Collector
	StartedAt      time.Time

	busConnected atomic.Bool

	subscriptionErrors  atomic.Uint64
	messagesForwarded   atomic.Uint64
	sseConnectionsTotal atomic.Uint64
	wsConnectionsTotal  atomic.Uint64

	activeSSEConnections atomic.Int64
	activeWSConnections  atomic.Int64
}

// New builds SharedState. sampler and clk are threaded through to the
// metrics Collector so the whole process shares one clock.
func New(sampler metrics.Sampler, maxEntries int, maxAge time.Duration, clk clock.Clock, logger *slog.Logger) *SharedState {
	s := &SharedState{
		Buffer:         buffer.New(maxEntries, maxAge, clk),
		LogBroadcaster: broadcast.New[record.Record](64),
		StartedAt:      clk.Now(),
	}
	s.Metrics = metrics.New(sampler, s, clk, logger)
	return s
}

// SetBusConnected implements ingest.ConnectionState.
func (s *SharedState) SetBusConnected(connected bool) {
	s.busConnected.Store(connected)
}

// BusConnected implements metrics.CounterSource.
func (s *SharedState) BusConnected() bool {
	return s.busConnected.Load()
}

// Counters implements metrics.CounterSource.
func (s *SharedState) Counters() metrics.Counters {
	return metrics.Counters{
		SubscriptionErrors:  s.subscriptionErrors.Load(),
		MessagesForwarded:   s.messagesForwarded.Load(),
		SSEConnectionsTotal: s.sseConnectionsTotal.Load(),
		WSConnectionsTotal:  s.wsConnectionsTotal.Load(),
	}
}

// Gauges implements metrics.CounterSource.
func (s *SharedState) Gauges() metrics.Gauges {
	return metrics.Gauges{
		ActiveSSEConnections: s.activeSSEConnections.Load(),
		ActiveWSConnections:  s.activeWSConnections.Load(),
	}
}

// IncSubscriptionErrors and the methods below are the ingest.Counters
// hooks plus the httpapi connection-tracking calls; each is a single
// atomic op so no lock is ever held across an I/O boundary.
func (s *SharedState) IncSubscriptionErrors() { s.subscriptionErrors.Add(1) }
func (s *SharedState) IncMessagesForwarded()  { s.messagesForwarded.Add(1) }

func (s *SharedState) SSEConnectionOpened() {
	s.sseConnectionsTotal.Add(1)
	s.activeSSEConnections.Add(1)
}

func (s *SharedState) SSEConnectionClosed() {
	s.activeSSEConnections.Add(-1)
}

func (s *SharedState) WSConnectionOpened() {
	s.wsConnectionsTotal.Add(1)
	s.activeWSConnections.Add(1)
}

func (s *SharedState) WSConnectionClosed() {
	s.activeWSConnections.Add(-1)
}
