// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buffer

import (
	"testing"
	"time"

	"github.com/flywatch/flywatch/internal/clock"
	"github.com/flywatch/flywatch/internal/record"
)

func makeRecord(level record.Severity, ts time.Time, message string) record.Record {
	return record.Record{Level: level, Timestamp: ts, Message: message, Instance: "i1"}
}

func TestEmptyBufferBoundaries(t *testing.T) {
	b := New(10, time.Hour, clock.Real())

	if got := b.Recent(5); got != nil {
		t.Errorf("Recent on empty buffer = %v, want nil", got)
	}
	byLevel := b.ByLevel(5)
	for level, recs := range byLevel {
		if len(recs) != 0 {
			t.Errorf("ByLevel[%s] on empty buffer = %v, want empty", level, recs)
		}
	}
	summary := b.Summary()
	if summary.OldestTimestamp != nil || summary.NewestTimestamp != nil {
		t.Errorf("Summary on empty buffer has non-nil timestamps: %+v", summary)
	}
}

func TestPushRespectsMaxEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(3, time.Hour, fake)

	for i := 0; i < 5; i++ {
		b.Push(makeRecord(record.SeverityInfo, now, "m"))
	}

	if got := len(b.Recent(100)); got != 3 {
		t.Errorf("buffer len = %d, want 3 (max_entries)", got)
	}
}

func TestEvictionAtExactlyMaxEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(3, time.Hour, fake)

	b.Push(makeRecord(record.SeverityInfo, now, "a"))
	b.Push(makeRecord(record.SeverityInfo, now, "b"))
	b.Push(makeRecord(record.SeverityInfo, now, "c"))

	b.Push(makeRecord(record.SeverityInfo, now, "d"))

	recs := b.Recent(100)
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	if recs[0].Message != "b" {
		t.Errorf("oldest surviving record = %q, want %q (exactly one evicted)", recs[0].Message, "b")
	}
}

func TestEvictionByAge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(100, 100*time.Millisecond, fake)

	for i := 0; i < 5; i++ {
		b.Push(makeRecord(record.SeverityInfo, now, "old"))
	}

	fake.Advance(150 * time.Millisecond)
	newTimestamp := fake.Now()
	b.Push(makeRecord(record.SeverityInfo, newTimestamp, "new"))

	recs := b.Recent(100)
	if len(recs) != 1 {
		t.Fatalf("len after age eviction = %d, want 1", len(recs))
	}
	summary := b.Summary()
	if summary.OldestTimestamp == nil || !summary.OldestTimestamp.Equal(newTimestamp) {
		t.Errorf("summary.oldest = %v, want %v", summary.OldestTimestamp, newTimestamp)
	}
}

func TestSeverityCountsEqualLength(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(100, time.Hour, fake)

	levels := []record.Severity{record.SeverityError, record.SeverityWarn, record.SeverityInfo, record.SeverityDebug, record.SeverityError}
	for _, level := range levels {
		b.Push(makeRecord(level, now, "m"))
	}

	summary := b.Summary()
	if summary.TotalCount != len(levels) {
		t.Fatalf("total = %d, want %d", summary.TotalCount, len(levels))
	}
	if summary.ErrorCount != 2 {
		t.Errorf("error_count = %d, want 2", summary.ErrorCount)
	}
	if summary.WarnCount != 1 {
		t.Errorf("warn_count = %d, want 1", summary.WarnCount)
	}
}

func TestByLevelBalancedContext(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(100, time.Hour, fake)

	for i := 0; i < 10; i++ {
		b.Push(makeRecord(record.SeverityError, now, "e"))
	}
	for i := 0; i < 2; i++ {
		b.Push(makeRecord(record.SeverityWarn, now, "w"))
	}

	byLevel := b.ByLevel(3)
	if len(byLevel[record.SeverityError]) != 3 {
		t.Errorf("errors returned = %d, want 3", len(byLevel[record.SeverityError]))
	}
	if len(byLevel[record.SeverityWarn]) != 2 {
		t.Errorf("warns returned = %d, want 2 (fewer than requested is fine)", len(byLevel[record.SeverityWarn]))
	}
}

func TestSinceDuration(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(100, time.Hour, fake)

	b.Push(makeRecord(record.SeverityInfo, now.Add(-30*time.Minute), "old"))
	b.Push(makeRecord(record.SeverityInfo, now.Add(-5*time.Minute), "recent"))

	recs := b.Since(10 * time.Minute)
	if len(recs) != 1 || recs[0].Message != "recent" {
		t.Errorf("Since(10m) = %+v, want only the recent record", recs)
	}
}

func TestSummaryIdempotent(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(100, time.Hour, fake)
	b.Push(makeRecord(record.SeverityError, now, "boom"))

	first := b.Summary()
	second := b.Summary()
	if first.TotalCount != second.TotalCount || first.ErrorCount != second.ErrorCount {
		t.Errorf("Summary not idempotent: %+v vs %+v", first, second)
	}
}

func TestRecentErrorsDeduplicated(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(100, time.Hour, fake)

	b.Push(makeRecord(record.SeverityError, now, "dup"))
	b.Push(makeRecord(record.SeverityError, now, "dup"))
	b.Push(makeRecord(record.SeverityError, now, "unique"))

	summary := b.Summary()
	if len(summary.RecentErrors) != 2 {
		t.Errorf("RecentErrors = %v, want 2 distinct messages", summary.RecentErrors)
	}
	if summary.RecentErrors[0].Message != "unique" {
		t.Errorf("RecentErrors[0].Message = %q, want most-recent-first %q", summary.RecentErrors[0].Message, "unique")
	}
}

func TestRecentErrorsCountAndSpan(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	b := New(100, time.Hour, fake)

	b.Push(makeRecord(record.SeverityError, now, "dup"))
	b.Push(makeRecord(record.SeverityError, now.Add(3*time.Minute), "dup"))
	b.Push(makeRecord(record.SeverityError, now.Add(7*time.Minute), "dup"))

	summary := b.Summary()
	if len(summary.RecentErrors) != 1 {
		t.Fatalf("RecentErrors = %v, want 1 distinct message", summary.RecentErrors)
	}
	g := summary.RecentErrors[0]
	if g.Count != 3 {
		t.Errorf("Count = %d, want 3", g.Count)
	}
	if !g.FirstSeen.Equal(now) || !g.LastSeen.Equal(now.Add(7*time.Minute)) {
		t.Errorf("FirstSeen/LastSeen = %v/%v, want %v/%v", g.FirstSeen, g.LastSeen, now, now.Add(7*time.Minute))
	}
}
