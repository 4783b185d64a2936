// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/flywatch/flywatch/internal/clock"
)

type fakeSampler struct{}

func (fakeSampler) CPUPercent() float64              { return 0 }
func (fakeSampler) Memory() (uint64, uint64) { return 0, 0 }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConnectionCountersTrackOpenClose(t *testing.T) {
	s := New(fakeSampler{}, 100, time.Hour, clock.Real(), discardLogger())

	s.SSEConnectionOpened()
	s.SSEConnectionOpened()
	s.SSEConnectionClosed()
	s.WSConnectionOpened()

	gauges := s.Gauges()
	if gauges.ActiveSSEConnections != 1 {
		t.Errorf("active sse = %d, want 1", gauges.ActiveSSEConnections)
	}
	if gauges.ActiveWSConnections != 1 {
		t.Errorf("active ws = %d, want 1", gauges.ActiveWSConnections)
	}

	counters := s.Counters()
	if counters.SSEConnectionsTotal != 2 {
		t.Errorf("sse total = %d, want 2", counters.SSEConnectionsTotal)
	}
	if counters.WSConnectionsTotal != 1 {
		t.Errorf("ws total = %d, want 1", counters.WSConnectionsTotal)
	}
}

func TestBusConnectedDefaultsFalse(t *testing.T) {
	s := New(fakeSampler{}, 100, time.Hour, clock.Real(), discardLogger())
	if s.BusConnected() {
		t.Error("expected bus_connected false before any SetBusConnected call")
	}
	s.SetBusConnected(true)
	if !s.BusConnected() {
		t.Error("expected bus_connected true after SetBusConnected(true)")
	}
}

func TestMessageAndErrorCounters(t *testing.T) {
	s := New(fakeSampler{}, 100, time.Hour, clock.Real(), discardLogger())
	s.IncMessagesForwarded()
	s.IncMessagesForwarded()
	s.IncSubscriptionErrors()

	counters := s.Counters()
	if counters.MessagesForwarded != 2 {
		t.Errorf("messages forwarded = %d, want 2", counters.MessagesForwarded)
	}
	if counters.SubscriptionErrors != 1 {
		t.Errorf("subscription errors = %d, want 1", counters.SubscriptionErrors)
	}
}
