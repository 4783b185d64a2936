// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/flywatch/flywatch/internal/buffer"
	"github.com/flywatch/flywatch/internal/metrics"
	"github.com/flywatch/flywatch/internal/record"
)

const systemPrompt = `You are the Flywatch agent, a production observability assistant for a single deployed application.

## Tools

**get_logs** - Fetch logs from the buffer
{"count": 100}        // last N logs
{"minutes": 10}        // logs from the last N minutes

**get_metrics** - Fetch current system metrics
{"type": "all"}        // cpu | memory | connections | all

## Behavior
- Analyze the provided context first; only call tools when more data is needed
- Be concise and direct - respond in 2-4 sentences when possible
- For errors: identify cause, impact, and fix
- For patterns: note frequency and timeline
- For metrics: highlight anomalies and thresholds

Keep responses tight and actionable. The user is an engineer.`

func formatDuration(d time.Duration) string {
	seconds := int64(d.Seconds())
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm%ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh%dm", seconds/3600, (seconds%3600)/60)
	}
}

func formatBytes(n uint64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.0fKB", float64(n)/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%.0fMB", float64(n)/(1024*1024))
	default:
		return fmt.Sprintf("%.1fGB", float64(n)/(1024*1024*1024))
	}
}

// formatMetricsCompact renders a Snapshot as a one-liner, used both
// in the initial context and as the get_metrics tool's "all" result.
func formatMetricsCompact(snap metrics.Snapshot) string {
	var systemInfo string
	if snap.System != nil {
		systemInfo = fmt.Sprintf("CPU: %.0f%% | Mem: %s/%s (%.0f%%) | ",
			snap.System.CPUPercent,
			formatBytes(snap.System.MemoryUsed), formatBytes(snap.System.MemoryTotal),
			snap.System.MemoryPercent)
	}

	busState := "down"
	if snap.BusConnected {
		busState = "up"
	}

	return fmt.Sprintf("%sConns: SSE=%d WS=%d | Bus: %s | Msgs: %d | Uptime: %s",
		systemInfo,
		snap.Gauges.ActiveSSEConnections, snap.Gauges.ActiveWSConnections,
		busState,
		snap.Counters.MessagesForwarded,
		formatDuration(time.Duration(snap.UptimeSeconds*float64(time.Second))))
}

// formatErrorGroup renders a deduplicated error message, annotated
// with its occurrence count and the span it occurred over when it
// fired more than once (§4.5: "(×N in last Mmin)").
func formatErrorGroup(g buffer.ErrorGroup) string {
	if g.Count <= 1 {
		return g.Message
	}
	spanMin := int64(g.LastSeen.Sub(g.FirstSeen).Minutes())
	if spanMin < 1 {
		spanMin = 1
	}
	return fmt.Sprintf("%s (×%d in last %dmin)", g.Message, g.Count, spanMin)
}

func formatLogCompact(rec record.Record) string {
	return rec.Compact()
}

func formatLogsCompact(recs []record.Record) string {
	if len(recs) == 0 {
		return "No logs available."
	}
	lines := make([]string, len(recs))
	for i, rec := range recs {
		lines[i] = formatLogCompact(rec)
	}
	return strings.Join(lines, "\n")
}

// buildInitialContext renders the compressed log/metrics state that
// seeds every chat request (§4.5): current metrics, a buffer summary,
// recent errors, active instances, and the last N raw log lines.
func buildInitialContext(snap metrics.Snapshot, summary buffer.Summary, recent []record.Record) string {
	var b strings.Builder
	b.WriteString("## Current State\n")
	b.WriteString(formatMetricsCompact(snap))
	b.WriteString("\n")

	timeRange := "N/A"
	if summary.OldestTimestamp != nil && summary.NewestTimestamp != nil {
		timeRange = fmt.Sprintf("%dmin", int64(summary.NewestTimestamp.Sub(*summary.OldestTimestamp).Minutes()))
	}
	fmt.Fprintf(&b, "Logs: %d buffered (last %s) | Errors: %d | Warns: %d\n",
		summary.TotalCount, timeRange, summary.ErrorCount, summary.WarnCount)

	if len(summary.RecentErrors) > 0 {
		b.WriteString("\n## Recent Errors\n")
		for _, group := range summary.RecentErrors {
			b.WriteString(formatErrorGroup(group))
			b.WriteString("\n")
		}
	}

	if len(summary.DistinctInstances) > 0 {
		instances := summary.DistinctInstances
		if len(instances) > 5 {
			instances = instances[:5]
		}
		fmt.Fprintf(&b, "\nActive instances: %s\n", strings.Join(instances, ", "))
	}

	if len(recent) > 0 {
		fmt.Fprintf(&b, "\n## Last %d Logs\n", len(recent))
		b.WriteString(formatLogsCompact(recent))
		b.WriteString("\n")
	}

	return b.String()
}

func formatToolResult(toolName, result string) string {
	return fmt.Sprintf("## Tool Result: %s\n%s", toolName, result)
}
