// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseSeverityCoercion(t *testing.T) {
	cases := map[string]Severity{
		"INFO":    SeverityInfo,
		"warn":    SeverityWarn,
		"Warning": SeverityWarn,
		"error":   SeverityError,
		"debug":   SeverityDebug,
		"":        SeverityInfo,
		"trace":   SeverityInfo,
	}
	for input, want := range cases {
		if got := ParseSeverity(input); got != want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseMissingFieldsFallBackToSentinels(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, ok := Parse(`{"message":"hello"}`, now)
	if !ok {
		t.Fatal("Parse returned ok=false for valid JSON")
	}
	if rec.Provider != "unknown" || rec.Instance != "unknown" || rec.AppName != "unknown" || rec.Region != "unknown" {
		t.Errorf("expected unknown sentinels, got %+v", rec)
	}
	if rec.Level != SeverityInfo {
		t.Errorf("expected default level info, got %q", rec.Level)
	}
	if !rec.Timestamp.Equal(now) {
		t.Errorf("expected fallback timestamp %v, got %v", now, rec.Timestamp)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, ok := Parse("not json", time.Now()); ok {
		t.Fatal("expected ok=false for invalid JSON")
	}
}

func TestParseTimestampFormats(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rec, ok := Parse(`{"timestamp":"2026-01-02T03:04:05Z","message":"m"}`, now)
	if !ok {
		t.Fatal("parse failed")
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Errorf("RFC3339 timestamp: got %v, want %v", rec.Timestamp, want)
	}

	rec, ok = Parse(`{"timestamp":1735776000000,"message":"m"}`, now)
	if !ok {
		t.Fatal("parse failed")
	}
	if rec.Timestamp.UnixMilli() != 1735776000000 {
		t.Errorf("epoch millis timestamp: got %v", rec.Timestamp)
	}
}

func TestParsePassesThroughUnknownFields(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, ok := Parse(`{"message":"hello","trace.id":"abc123","retries":3}`, now)
	if !ok {
		t.Fatal("parse failed")
	}
	if len(rec.Extra) != 2 {
		t.Fatalf("Extra = %v, want 2 unknown keys", rec.Extra)
	}

	body, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal re-encoded record: %v", err)
	}
	if string(out["trace.id"]) != `"abc123"` {
		t.Errorf("trace.id = %s, want passthrough of original value", out["trace.id"])
	}
	if string(out["retries"]) != "3" {
		t.Errorf("retries = %s, want passthrough of original value", out["retries"])
	}
}

func TestCompactRendering(t *testing.T) {
	rec := Record{
		Timestamp: time.Date(2026, 1, 1, 13, 5, 9, 0, time.UTC),
		Level:     SeverityError,
		Instance:  "abc123",
		Region:    "iad",
		Message:   "boom",
	}
	got := rec.Compact()
	want := "[13:05:09] error abc123 iad: boom"
	if got != want {
		t.Errorf("Compact() = %q, want %q", got, want)
	}
}
