// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/flywatch/flywatch/internal/buffer"
	"github.com/flywatch/flywatch/internal/clock"
	"github.com/flywatch/flywatch/internal/llm"
	"github.com/flywatch/flywatch/internal/metrics"
	"github.com/flywatch/flywatch/internal/record"
)

type scriptedProvider struct {
	responses []llm.Response
	calls     int
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp := p.responses[p.calls]
	p.calls++
	return &resp, nil
}

type fakeSampler struct{}

func (fakeSampler) CPUPercent() float64              { return 1 }
func (fakeSampler) Memory() (uint64, uint64) { return 1, 2 }

type fakeSource struct{}

func (fakeSource) Counters() metrics.Counters { return metrics.Counters{} }
func (fakeSource) Gauges() metrics.Gauges     { return metrics.Gauges{} }
func (fakeSource) BusConnected() bool         { return true }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestAgent(t *testing.T, provider llm.Provider) (*Agent, *buffer.RollingBuffer, clock.Clock) {
	clk := clock.Real()
	buf := buffer.New(100, time.Hour, clk)
	buf.Push(record.Record{Timestamp: clk.Now(), Level: record.SeverityError, Instance: "web-1", Region: "iad", Message: "boom"})
	collector := metrics.New(fakeSampler{}, fakeSource{}, clk, discardLogger())
	usage := NewUsageTracker(clk)
	return New(provider, buf, collector, "moonshotai/kimi-k2", clk, usage), buf, clk
}

func TestRunReturnsDirectAnswerWithoutTools(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{
		{
			Model:        "moonshotai/kimi-k2",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: "All good."},
			FinishReason: llm.StopReasonStop,
			Usage:        llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		},
	}}
	a, _, _ := newTestAgent(t, provider)

	result, err := a.Run(context.Background(), Request{Message: "how's it going?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Response != "All good." {
		t.Errorf("response = %q", result.Response)
	}
	if len(result.ToolsCalled) != 0 {
		t.Errorf("expected no tools called, got %v", result.ToolsCalled)
	}
	if result.Cost.TotalCostUSD <= 0 {
		t.Error("expected nonzero cost")
	}
}

func TestRunExecutesToolCallThenAnswers(t *testing.T) {
	argsJSON, _ := json.Marshal(map[string]int{"count": 10})
	provider := &scriptedProvider{responses: []llm.Response{
		{
			Model: "moonshotai/kimi-k2",
			Message: llm.Message{
				Role: llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{
					{ID: "call_1", Name: "get_logs", Arguments: string(argsJSON)},
				},
			},
			FinishReason: llm.StopReasonToolCalls,
		},
		{
			Model:        "moonshotai/kimi-k2",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: "One error: boom."},
			FinishReason: llm.StopReasonStop,
			Usage:        llm.Usage{PromptTokens: 200, CompletionTokens: 30, TotalTokens: 230},
		},
	}}
	a, _, _ := newTestAgent(t, provider)

	result, err := a.Run(context.Background(), Request{Message: "any errors?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.ToolsCalled) != 1 {
		t.Fatalf("expected 1 tool call recorded, got %v", result.ToolsCalled)
	}
	if result.Response != "One error: boom." {
		t.Errorf("response = %q", result.Response)
	}
	if provider.calls != 2 {
		t.Errorf("provider called %d times, want 2", provider.calls)
	}
}

func TestRunTruncatesAfterMaxRoundsOfToolCalls(t *testing.T) {
	responses := make([]llm.Response, 0, maxRounds)
	for i := 0; i < maxRounds; i++ {
		responses = append(responses, llm.Response{
			Model: "moonshotai/kimi-k2",
			Message: llm.Message{
				Role:      llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{ID: "call", Name: "get_metrics", Arguments: "{}"}},
			},
			FinishReason: llm.StopReasonToolCalls,
		})
	}
	provider := &scriptedProvider{responses: responses}
	a, _, _ := newTestAgent(t, provider)

	result, err := a.Run(context.Background(), Request{Message: "loop forever"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Response != "(truncated: tool-call budget exhausted)" {
		t.Errorf("response = %q, want the truncation annotation", result.Response)
	}
	if len(result.ToolsCalled) != maxRounds {
		t.Errorf("tools called = %d, want %d", len(result.ToolsCalled), maxRounds)
	}
	if provider.calls != maxRounds {
		t.Errorf("provider called %d times, want %d", provider.calls, maxRounds)
	}
}

func TestRunAccumulatesUsageAcrossRounds(t *testing.T) {
	argsJSON, _ := json.Marshal(map[string]int{"count": 10})
	provider := &scriptedProvider{responses: []llm.Response{
		{
			Model: "moonshotai/kimi-k2",
			Message: llm.Message{
				Role:      llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_logs", Arguments: string(argsJSON)}},
			},
			FinishReason: llm.StopReasonToolCalls,
			Usage:        llm.Usage{PromptTokens: 100, CompletionTokens: 10, TotalTokens: 110},
		},
		{
			Model:        "moonshotai/kimi-k2",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: "One error: boom."},
			FinishReason: llm.StopReasonStop,
			Usage:        llm.Usage{PromptTokens: 200, CompletionTokens: 30, TotalTokens: 230},
		},
	}}
	a, _, _ := newTestAgent(t, provider)

	result, err := a.Run(context.Background(), Request{Message: "any errors?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Usage.PromptTokens != 300 || result.Usage.CompletionTokens != 40 || result.Usage.TotalTokens != 340 {
		t.Errorf("usage = %+v, want summed across both rounds", result.Usage)
	}
}

func TestUsageTrackerAggregates(t *testing.T) {
	clk := clock.Real()
	tracker := NewUsageTracker(clk)
	tracker.Record(&Result{Model: "m", Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, Cost: llm.Cost{TotalCostUSD: 0.01}, ProcessingTimeMS: 100})
	tracker.Record(&Result{Model: "m", Usage: llm.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30}, Cost: llm.Cost{TotalCostUSD: 0.02}, ProcessingTimeMS: 200, ToolsCalled: []string{"get_logs(...)"}})

	stats := tracker.Stats()
	if stats.TotalRequests != 2 {
		t.Errorf("total requests = %d, want 2", stats.TotalRequests)
	}
	if stats.RequestsWithTools != 1 {
		t.Errorf("requests with tools = %d, want 1", stats.RequestsWithTools)
	}
	if stats.TotalTokens != 45 {
		t.Errorf("total tokens = %d, want 45", stats.TotalTokens)
	}

	recent := tracker.Recent(1)
	if len(recent) != 1 || recent[0].TotalTokens != 30 {
		t.Errorf("recent = %+v", recent)
	}
}
