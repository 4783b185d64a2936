// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import "context"

// Provider is a single non-streaming chat-completion call. Flywatch's
// agent is a synchronous request/response loop driven by one HTTP
// request (§4.5), so unlike the streaming/SSE Provider the teacher's
// agent runtime uses, Complete is the whole interface — there is no
// Stream method here.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
