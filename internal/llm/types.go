// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm talks to an OpenAI-compatible chat-completions endpoint:
// a single non-streaming Provider interface, a vendor wire adapter,
// and the pricing table the agent uses to cost each response.
package llm

import "encoding/json"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON, parsed by the tool implementation
}

// Message is one turn in the conversation. Exactly one of Content or
// ToolCalls is meaningful for an assistant turn that calls tools;
// ToolCallID is set only on a RoleTool message, tying it back to the
// ToolCall it answers.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition describes a callable tool using JSON Schema for its
// parameters, the shape every OpenAI-compatible endpoint expects.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Request is a single chat-completion call. Tools is nil when no
// tools should be offered this round (never the case for Flywatch's
// fixed two-tool agent, but kept general).
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// FinishReason mirrors the wire value verbatim; StopReasonToolCalls is
// the one Flywatch's agent loop branches on.
type FinishReason string

const (
	StopReasonStop      FinishReason = "stop"
	StopReasonToolCalls FinishReason = "tool_calls"
	StopReasonLength    FinishReason = "length"
)

// Usage is the token accounting an upstream returns alongside a
// completion; absent (all zero) if the upstream didn't report it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is one assistant turn plus the accounting needed to cost
// and log it.
type Response struct {
	Model        string
	Message      Message
	FinishReason FinishReason
	Usage        Usage
}

// HasToolCalls reports whether the model wants tools executed before
// it will produce a final answer.
func (r *Response) HasToolCalls() bool {
	return r.FinishReason == StopReasonToolCalls && len(r.Message.ToolCalls) > 0
}
