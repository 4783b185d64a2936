// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/flywatch/flywatch/internal/clock"
)

type fakeSampler struct {
	cpu         float64
	used, total uint64
}

func (f fakeSampler) CPUPercent() float64              { return f.cpu }
func (f fakeSampler) Memory() (uint64, uint64) { return f.used, f.total }

type fakeSource struct {
	connected bool
}

func (f fakeSource) Counters() Counters { return Counters{MessagesForwarded: 42} }
func (f fakeSource) Gauges() Gauges     { return Gauges{ActiveSSEConnections: 3} }
func (f fakeSource) BusConnected() bool { return f.connected }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSamplePopulatesSystemBlock(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	c := New(fakeSampler{cpu: 12.5, used: 50, total: 100}, fakeSource{connected: true}, fake, discardLogger())

	snap := c.Sample()
	if snap.System == nil {
		t.Fatal("expected system block populated")
	}
	if snap.System.CPUPercent != 12.5 {
		t.Errorf("cpu_percent = %v, want 12.5", snap.System.CPUPercent)
	}
	if snap.System.MemoryPercent != 50 {
		t.Errorf("memory_percent = %v, want 50", snap.System.MemoryPercent)
	}
	if !snap.BusConnected {
		t.Error("expected bus_connected true")
	}
	if snap.Counters.MessagesForwarded != 42 {
		t.Errorf("messages_forwarded = %d, want 42", snap.Counters.MessagesForwarded)
	}
}

func TestRunNeverSkipsATick(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	c := New(fakeSampler{}, fakeSource{}, fake, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	sub := c.Broadcaster().Subscribe()
	defer c.Broadcaster().Unsubscribe(sub)

	go c.Run(ctx, time.Second)

	fake.WaitForTimers(1)
	fake.Advance(time.Second)

	msg, err := sub.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.Lagged != 0 {
		t.Fatalf("unexpected lag on first tick: %d", msg.Lagged)
	}
	cancel()
}
