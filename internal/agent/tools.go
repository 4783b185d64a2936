// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flywatch/flywatch/internal/buffer"
	"github.com/flywatch/flywatch/internal/flyerr"
	"github.com/flywatch/flywatch/internal/llm"
	"github.com/flywatch/flywatch/internal/metrics"
	"github.com/flywatch/flywatch/internal/record"
)

// toolDefinitions is the fixed, two-tool schema offered on every
// round (§4.5). Unlike the teacher's agent, which selects a tool
// subset from a registry per round, Flywatch's tool surface never
// changes, so there is no search/selection step.
func toolDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "get_logs",
			Description: "Fetch logs from the buffer. Use 'count' for last N logs or 'minutes' for time-based retrieval; 'count' wins if both are given. Optionally filter by 'level'.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"count": {"type": "integer", "description": "Number of recent logs to fetch"},
					"minutes": {"type": "integer", "description": "Fetch logs from the last N minutes"},
					"level": {"type": "string", "enum": ["error", "warn", "info", "debug"], "description": "Restrict results to one severity level"}
				}
			}`),
		},
		{
			Name:        "get_metrics",
			Description: "Fetch current system metrics including CPU, memory, and connection information.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"type": {"type": "string", "enum": ["cpu", "memory", "connections", "all"], "description": "Type of metrics to fetch"}
				}
			}`),
		},
	}
}

type getLogsArgs struct {
	Count   *int    `json:"count"`
	Minutes *int64  `json:"minutes"`
	Level   *string `json:"level"`
}

type getMetricsArgs struct {
	Type string `json:"type"`
}

// executeTool runs one tool call against the buffer/collector and
// renders a compact text result for the next turn's tool message.
// A malformed-arguments or unknown-tool failure is returned as an
// "Error: ..." string rather than a Go error, matching §4.5: tool
// failures are surfaced to the model, not to the HTTP caller.
func executeTool(name, arguments string, buf *buffer.RollingBuffer, collector *metrics.Collector) string {
	switch name {
	case "get_logs":
		var args getLogsArgs
		if arguments != "" {
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return fmt.Sprintf("Error: invalid arguments: %v", err)
			}
		}

		logs := fetchLogs(buf, args)
		return fmt.Sprintf("Retrieved %d logs:\n%s", len(logs), formatLogsCompact(logs))

	case "get_metrics":
		var args getMetricsArgs
		if arguments != "" {
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return fmt.Sprintf("Error: invalid arguments: %v", err)
			}
		}
		return formatMetricsByType(collector.Sample(), args.Type)

	default:
		return fmt.Sprintf("Error: unknown tool: %s", name)
	}
}

// fetchLogs honors §4.5's precedence rule: when both count and minutes
// are given, count wins. level, when present, restricts the result to
// one severity via RollingBuffer.ByLevel rather than the plain
// count/minutes retrieval.
func fetchLogs(buf *buffer.RollingBuffer, args getLogsArgs) []record.Record {
	if args.Level != nil {
		n := 50
		if args.Count != nil {
			n = *args.Count
		}
		return buf.ByLevel(n)[record.ParseSeverity(*args.Level)]
	}
	if args.Count != nil {
		return buf.Recent(*args.Count)
	}
	if args.Minutes != nil {
		return buf.Since(time.Duration(*args.Minutes) * time.Minute)
	}
	return buf.Recent(50)
}

func formatMetricsByType(snap metrics.Snapshot, metricType string) string {
	switch metricType {
	case "cpu":
		if snap.System == nil {
			return "CPU metrics not available"
		}
		return fmt.Sprintf("CPU Usage: %.1f%%", snap.System.CPUPercent)
	case "memory":
		if snap.System == nil {
			return "Memory metrics not available"
		}
		return fmt.Sprintf("Memory: %.0fMB / %.0fMB (%.1f%%)",
			float64(snap.System.MemoryUsed)/(1024*1024),
			float64(snap.System.MemoryTotal)/(1024*1024),
			snap.System.MemoryPercent)
	case "connections":
		return fmt.Sprintf("Connections - SSE: %d active (%d total), WebSocket: %d active (%d total)",
			snap.Gauges.ActiveSSEConnections, snap.Counters.SSEConnectionsTotal,
			snap.Gauges.ActiveWSConnections, snap.Counters.WSConnectionsTotal)
	default:
		return formatMetricsCompact(snap)
	}
}

// ErrUnavailable is the error text the HTTP layer sends with its 501
// when chat is not configured (§6: absence of an LLM API key → 501 on
// /chat).
var ErrUnavailable = flyerr.New(flyerr.KindConfig, "chat is not configured: no LLM API key set")
