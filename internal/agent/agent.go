// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the bounded multi-turn tool-calling loop
// behind POST /chat (C6): one synchronous request/response cycle that
// seeds an LLM with compressed log/metrics context, lets it call
// get_logs/get_metrics over a fixed number of rounds, and returns the
// final answer alongside token usage and cost.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/flywatch/flywatch/internal/buffer"
	"github.com/flywatch/flywatch/internal/clock"
	"github.com/flywatch/flywatch/internal/llm"
	"github.com/flywatch/flywatch/internal/metrics"
)

// maxRounds bounds the tool-calling loop (§4.5, default 5). Exceeding
// it is not an error: Run returns the last textual content the model
// produced, annotated as truncated if it produced none.
const maxRounds = 5

// Request is one POST /chat call.
type Request struct {
	Message string
	Model   string // empty means use the agent's configured default
}

// Result is returned to the HTTP layer and also recorded into the
// UsageTracker.
type Result struct {
	Response         string    `json:"response"`
	Model            string    `json:"model"`
	Usage            llm.Usage `json:"usage"`
	Cost             llm.Cost  `json:"cost"`
	ToolsCalled      []string  `json:"tools_called"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
}

// Agent wires an llm.Provider to the buffer/metrics tool
// implementations and the shared usage tracker.
type Agent struct {
	provider     llm.Provider
	buf          *buffer.RollingBuffer
	collector    *metrics.Collector
	defaultModel string
	clk          clock.Clock
	usage        *UsageTracker
}

// New creates an Agent. defaultModel is used when Request.Model is
// empty.
func New(provider llm.Provider, buf *buffer.RollingBuffer, collector *metrics.Collector, defaultModel string, clk clock.Clock, usage *UsageTracker) *Agent {
	return &Agent{
		provider:     provider,
		buf:          buf,
		collector:    collector,
		defaultModel: defaultModel,
		clk:          clk,
		usage:        usage,
	}
}

// Run executes the full tool-calling loop for one chat request, bounded
// by maxRounds and by ctx (the HTTP layer attaches the per-request
// timeout to ctx before calling Run, §5).
func (a *Agent) Run(ctx context.Context, req Request) (*Result, error) {
	start := a.clk.Now()

	model := req.Model
	if model == "" {
		model = a.defaultModel
	}

	snap := a.collector.Sample()
	summary := a.buf.Summary()
	recent := a.buf.Recent(150)
	initialContext := buildInitialContext(snap, summary, recent)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("%s\n\n## User Question\n%s", initialContext, req.Message)},
	}

	tools := toolDefinitions()
	var toolsCalled []string
	var lastResp *llm.Response
	var totalUsage llm.Usage

	for round := 0; round < maxRounds; round++ {
		resp, err := a.provider.Complete(ctx, llm.Request{
			Model:       model,
			Messages:    messages,
			Tools:       tools,
			Temperature: 0.3,
		})
		if err != nil {
			return nil, err
		}
		lastResp = resp
		totalUsage.PromptTokens += resp.Usage.PromptTokens
		totalUsage.CompletionTokens += resp.Usage.CompletionTokens
		totalUsage.TotalTokens += resp.Usage.TotalTokens

		if !resp.HasToolCalls() {
			return a.finish(resp, totalUsage, toolsCalled, start), nil
		}

		messages = append(messages, resp.Message)

		for _, call := range resp.Message.ToolCalls {
			toolsCalled = append(toolsCalled, fmt.Sprintf("%s(%s)", call.Name, call.Arguments))
			result := executeTool(call.Name, call.Arguments, a.buf, a.collector)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return a.finishTruncated(lastResp, totalUsage, toolsCalled, start), nil
}

// finish builds the Result for a response with no further tool calls
// and records it into the usage tracker. usage is the sum of every
// round's reported tokens, not just the final round's (§4.5
// Accounting). toolsCalled is nil-safe (copied, never aliased into
// the Result).
func (a *Agent) finish(resp *llm.Response, usage llm.Usage, toolsCalled []string, start time.Time) *Result {
	cost := llm.CalculateCost(resp.Model, usage)
	elapsed := a.clk.Now().Sub(start)

	result := &Result{
		Response:         resp.Message.Content,
		Model:            resp.Model,
		Usage:            usage,
		Cost:             cost,
		ToolsCalled:      append([]string(nil), toolsCalled...),
		ProcessingTimeMS: elapsed.Milliseconds(),
	}

	if a.usage != nil {
		a.usage.Record(result)
	}
	return result
}

// finishTruncated builds the Result for a request that exhausted
// maxRounds without the model ever returning a final, tool-call-free
// answer (§4.5, §8.6). The round's textual content stands in for the
// missing answer; an empty one is annotated rather than returned blank.
// usage is accumulated across every round, same as finish.
func (a *Agent) finishTruncated(resp *llm.Response, usage llm.Usage, toolsCalled []string, start time.Time) *Result {
	content := resp.Message.Content
	if content == "" {
		content = "(truncated: tool-call budget exhausted)"
	}

	cost := llm.CalculateCost(resp.Model, usage)
	elapsed := a.clk.Now().Sub(start)

	result := &Result{
		Response:         content,
		Model:            resp.Model,
		Usage:            usage,
		Cost:             cost,
		ToolsCalled:      append([]string(nil), toolsCalled...),
		ProcessingTimeMS: elapsed.Milliseconds(),
	}

	if a.usage != nil {
		a.usage.Record(result)
	}
	return result
}
