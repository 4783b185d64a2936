// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package buffer implements the rolling log buffer: a time-and-count
// bounded in-memory window over recently ingested records.
package buffer

import (
	"sync"
	"time"

	"github.com/flywatch/flywatch/internal/clock"
	"github.com/flywatch/flywatch/internal/record"
)

// RollingBuffer holds a chronologically ordered window of Records
// bounded by two independent limits: a maximum entry count and a
// maximum age. A single mutex guards the ordered sequence and the
// severity counters; eviction amortizes to O(1) per push.
type RollingBuffer struct {
	mu         sync.Mutex
	entries    []record.Record
	maxEntries int
	maxAge     time.Duration
	clk        clock.Clock

	errorCount int
	warnCount  int
}

// New creates a RollingBuffer bounded by maxEntries and maxAge. The
// clock is injected so age-based eviction can be driven deterministically
// in tests.
func New(maxEntries int, maxAge time.Duration, clk clock.Clock) *RollingBuffer {
	return &RollingBuffer{
		maxEntries: maxEntries,
		maxAge:     maxAge,
		clk:        clk,
	}
}

// Push appends rec and evicts from the front until both the count and
// age invariants hold.
func (b *RollingBuffer) Push(rec record.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, rec)
	b.bumpCountLocked(rec.Level, 1)
	b.evictLocked()
}

func (b *RollingBuffer) bumpCountLocked(level record.Severity, delta int) {
	switch level {
	case record.SeverityError:
		b.errorCount += delta
	case record.SeverityWarn:
		b.warnCount += delta
	}
}

// evictLocked drops entries from the front until len <= maxEntries and
// the oldest entry's timestamp is within now-maxAge. Must be called
// with mu held.
func (b *RollingBuffer) evictLocked() {
	cutoff := b.clk.Now().Add(-b.maxAge)
	for len(b.entries) > 0 {
		tooMany := b.maxEntries > 0 && len(b.entries) > b.maxEntries
		tooOld := b.maxAge > 0 && b.entries[0].Timestamp.Before(cutoff)
		if !tooMany && !tooOld {
			break
		}
		b.bumpCountLocked(b.entries[0].Level, -1)
		b.entries[0] = record.Record{}
		b.entries = b.entries[1:]
	}
}

// Recent returns up to n most recent Records in chronological order.
// Returns fewer if the buffer is shorter; never fails.
func (b *RollingBuffer) Recent(n int) []record.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || len(b.entries) == 0 {
		return nil
	}
	if n > len(b.entries) {
		n = len(b.entries)
	}
	start := len(b.entries) - n
	out := make([]record.Record, n)
	copy(out, b.entries[start:])
	return out
}

// Since returns all Records with timestamp >= now-duration, in
// chronological order.
func (b *RollingBuffer) Since(d time.Duration) []record.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.clk.Now().Add(-d)
	start := len(b.entries)
	for i, rec := range b.entries {
		if !rec.Timestamp.Before(cutoff) {
			start = i
			break
		}
	}
	out := make([]record.Record, len(b.entries)-start)
	copy(out, b.entries[start:])
	return out
}

// ByLevel returns, for each severity, up to perLevelN most recent
// Records of that severity. Used by the agent for balanced context.
func (b *RollingBuffer) ByLevel(perLevelN int) map[record.Severity][]record.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	levels := []record.Severity{record.SeverityError, record.SeverityWarn, record.SeverityInfo, record.SeverityDebug}
	out := make(map[record.Severity][]record.Record, len(levels))
	for _, level := range levels {
		out[level] = nil
	}
	if perLevelN <= 0 {
		return out
	}

	for i := len(b.entries) - 1; i >= 0; i-- {
		rec := b.entries[i]
		if len(out[rec.Level]) >= perLevelN {
			continue
		}
		out[rec.Level] = append(out[rec.Level], rec)
	}
	for level, recs := range out {
		for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
			recs[i], recs[j] = recs[j], recs[i]
		}
		out[level] = recs
	}
	return out
}

// ErrorGroup is one deduplicated error message together with how many
// times it occurred in the buffer and the span it occurred over, so
// the agent can render "(×N in last Mmin)" instead of repeating the
// same line once per occurrence (§4.5).
type ErrorGroup struct {
	Message   string
	Count     int
	FirstSeen time.Time
	LastSeen  time.Time
}

// Summary aggregates buffer-wide statistics for the agent's initial
// context block and the /health-adjacent diagnostics.
type Summary struct {
	TotalCount        int
	OldestTimestamp   *time.Time
	NewestTimestamp   *time.Time
	ErrorCount        int
	WarnCount         int
	RecentErrors      []ErrorGroup
	DistinctInstances []string
}

// Summary returns total_count, oldest/newest timestamps, error/warn
// counts, the last 5 distinct error message bodies (most-recent
// first), and the set of distinct instance ids currently resident.
// Idempotent under repeated calls with no intervening Push.
func (b *RollingBuffer) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Summary{
		TotalCount: len(b.entries),
		ErrorCount: b.errorCount,
		WarnCount:  b.warnCount,
	}
	if len(b.entries) == 0 {
		return s
	}

	oldest := b.entries[0].Timestamp
	newest := b.entries[len(b.entries)-1].Timestamp
	s.OldestTimestamp = &oldest
	s.NewestTimestamp = &newest

	seenInstance := make(map[string]struct{})
	groups := make(map[string]*ErrorGroup)
	var order []string // message keys, most-recently-seen first
	for i := len(b.entries) - 1; i >= 0; i-- {
		rec := b.entries[i]
		if _, ok := seenInstance[rec.Instance]; !ok {
			seenInstance[rec.Instance] = struct{}{}
			s.DistinctInstances = append(s.DistinctInstances, rec.Instance)
		}
		if rec.Level != record.SeverityError {
			continue
		}
		g, ok := groups[rec.Message]
		if !ok {
			g = &ErrorGroup{Message: rec.Message, FirstSeen: rec.Timestamp, LastSeen: rec.Timestamp}
			groups[rec.Message] = g
			order = append(order, rec.Message)
		}
		g.Count++
		if rec.Timestamp.Before(g.FirstSeen) {
			g.FirstSeen = rec.Timestamp
		}
		if rec.Timestamp.After(g.LastSeen) {
			g.LastSeen = rec.Timestamp
		}
	}
	for _, msg := range order {
		if len(s.RecentErrors) >= 5 {
			break
		}
		s.RecentErrors = append(s.RecentErrors, *groups[msg])
	}
	return s
}
