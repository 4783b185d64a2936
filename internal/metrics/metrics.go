// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics implements the periodic system-metrics collector
// (C5): a fixed-tick sampler that combines process counters and
// gauges with process/system CPU and memory stats into a broadcast
// snapshot stream.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/flywatch/flywatch/internal/broadcast"
	"github.com/flywatch/flywatch/internal/clock"
)

// Sampler abstracts the platform-specific CPU/memory reading so the
// Collector itself has no OS dependency. cpu_percent may be 0.0 if
// unavailable; memory returns (used_bytes, total_bytes).
type Sampler interface {
	CPUPercent() float64
	Memory() (usedBytes, totalBytes uint64)
}

// System is a point-in-time reading of process/system resource usage.
type System struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsed    uint64  `json:"memory_used_bytes"`
	MemoryTotal   uint64  `json:"memory_total_bytes"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Counters are monotonically increasing within a process lifetime.
type Counters struct {
	SubscriptionErrors uint64 `json:"subscription_errors"`
	MessagesForwarded  uint64 `json:"messages_forwarded"`
	SSEConnectionsTotal uint64 `json:"sse_connections_total"`
	WSConnectionsTotal  uint64 `json:"ws_connections_total"`
}

// Gauges are sampled at snapshot time.
type Gauges struct {
	ActiveSSEConnections int64 `json:"active_sse_connections"`
	ActiveWSConnections  int64 `json:"active_ws_connections"`
}

// Snapshot is taken at most once per emit tick (§3, MetricsSnapshot).
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	BusConnected  bool      `json:"bus_connected"`
	Counters      Counters  `json:"counters"`
	Gauges        Gauges    `json:"gauges"`
	System        *System   `json:"system,omitempty"`
}

// CounterSource supplies the counters/gauges/bus-state that the
// Collector has no other way to observe; SharedState implements it.
type CounterSource interface {
	Counters() Counters
	Gauges() Gauges
	BusConnected() bool
}

// Collector emits one Snapshot per tick onto a dedicated Broadcaster.
type Collector struct {
	sampler   Sampler
	source    CounterSource
	clk       clock.Clock
	startedAt time.Time
	logger    *slog.Logger

	broadcaster *broadcast.Broadcaster[Snapshot]
}

// New creates a Collector. Its Broadcaster, fed by Run, is shared by
// all /metrics/ws subscribers; GET /metrics calls Sample directly
// instead.
func New(sampler Sampler, source CounterSource, clk clock.Clock, logger *slog.Logger) *Collector {
	return &Collector{
		sampler:     sampler,
		source:      source,
		clk:         clk,
		startedAt:   clk.Now(),
		logger:      logger,
		broadcaster: broadcast.New[Snapshot](8),
	}
}

// Broadcaster returns the metrics broadcast stream.
func (c *Collector) Broadcaster() *broadcast.Broadcaster[Snapshot] { return c.broadcaster }

// Sample takes one Snapshot on demand (used by GET /metrics). On
// sampling failure the system block is omitted and a diagnostic is
// logged; the snapshot itself is still returned.
func (c *Collector) Sample() Snapshot {
	snap := Snapshot{
		Timestamp:     c.clk.Now(),
		UptimeSeconds: c.clk.Now().Sub(c.startedAt).Seconds(),
		BusConnected:  c.source.BusConnected(),
		Counters:      c.source.Counters(),
		Gauges:        c.source.Gauges(),
	}

	system, err := c.sampleSystem()
	if err != nil {
		c.logger.Warn("metrics: system sample failed", "error", err)
	} else {
		snap.System = system
	}
	return snap
}

func (c *Collector) sampleSystem() (*System, error) {
	cpuPercent := c.sampler.CPUPercent()
	used, total := c.sampler.Memory()

	var memPercent float64
	if total > 0 {
		memPercent = float64(used) / float64(total) * 100
	}
	return &System{
		CPUPercent:    cpuPercent,
		MemoryUsed:    used,
		MemoryTotal:   total,
		MemoryPercent: memPercent,
	}, nil
}

// Run ticks at the given interval until ctx is cancelled, publishing
// one Snapshot per tick. A sampling failure never skips the tick —
// Sample itself degrades gracefully by omitting the system block.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := c.clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.broadcaster.Publish(c.Sample())
		case <-ctx.Done():
			return
		}
	}
}
