// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"sync"
	"time"

	"github.com/flywatch/flywatch/internal/clock"
)

// UsageRecord is one completed chat request's accounting. Grounded on
// the original usage tracker's persisted record shape, kept in
// memory only: Flywatch does not persist across restarts (the same
// restriction spec.md's Non-goals place on the log buffer).
type UsageRecord struct {
	Timestamp        time.Time
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
	ProcessingTimeMS int64
	ToolsCalled      []string
}

// UsageStats aggregates every UsageRecord held by the tracker.
type UsageStats struct {
	TotalRequests            int64
	TotalTokens              int64
	TotalPromptTokens        int64
	TotalCompletionTokens    int64
	TotalCostUSD             float64
	AverageProcessingTimeMS  float64
	RequestsWithTools        int64
	PeriodStart              *time.Time
	PeriodEnd                *time.Time
}

// maxRetained caps the in-memory ring so a long-running process with
// heavy chat traffic doesn't grow this without bound; recent records
// matter far more than ancient ones. The running aggregates in stats
// still cover every recorded request.
const maxRetained = 1000

// UsageTracker accumulates usage records and running aggregates
// in memory. Safe for concurrent use from multiple HTTP handlers.
type UsageTracker struct {
	mu      sync.Mutex
	clk     clock.Clock
	records []UsageRecord
	stats   UsageStats
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker(clk clock.Clock) *UsageTracker {
	return &UsageTracker{clk: clk}
}

// Record appends one completed request's accounting and updates the
// running aggregates. Called from Agent.finish; never returns an
// error since it is pure in-memory bookkeeping.
func (t *UsageTracker) Record(result *Result) {
	rec := UsageRecord{
		Timestamp:        t.clk.Now(),
		Model:            result.Model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
		CostUSD:          result.Cost.TotalCostUSD,
		ProcessingTimeMS: result.ProcessingTimeMS,
		ToolsCalled:      result.ToolsCalled,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, rec)
	if len(t.records) > maxRetained {
		t.records = t.records[len(t.records)-maxRetained:]
	}

	t.stats.TotalRequests++
	t.stats.TotalTokens += int64(rec.TotalTokens)
	t.stats.TotalPromptTokens += int64(rec.PromptTokens)
	t.stats.TotalCompletionTokens += int64(rec.CompletionTokens)
	t.stats.TotalCostUSD += rec.CostUSD
	if len(rec.ToolsCalled) > 0 {
		t.stats.RequestsWithTools++
	}
	t.stats.AverageProcessingTimeMS = t.stats.AverageProcessingTimeMS +
		(float64(rec.ProcessingTimeMS)-t.stats.AverageProcessingTimeMS)/float64(t.stats.TotalRequests)

	if t.stats.PeriodStart == nil {
		start := rec.Timestamp
		t.stats.PeriodStart = &start
	}
	end := rec.Timestamp
	t.stats.PeriodEnd = &end
}

// Stats returns a snapshot of the running aggregates.
func (t *UsageTracker) Stats() UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Recent returns up to limit most-recent UsageRecords, newest first.
func (t *UsageTracker) Recent(limit int) []UsageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 || len(t.records) == 0 {
		return nil
	}
	if limit > len(t.records) {
		limit = len(t.records)
	}
	out := make([]UsageRecord, limit)
	for i := 0; i < limit; i++ {
		out[i] = t.records[len(t.records)-1-i]
	}
	return out
}
