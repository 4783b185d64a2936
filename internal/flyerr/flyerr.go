// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package flyerr defines the typed error kinds used to classify
// failures across Flywatch's components and map them onto HTTP status
// codes and background-task retry policy.
package flyerr

import "fmt"

// Kind classifies an error for HTTP status mapping and retry policy.
type Kind string

const (
	// KindConfig marks a fatal startup configuration error.
	KindConfig Kind = "config"
	// KindTransport marks a recoverable bus transport error; triggers
	// Ingestor reconnect with backoff.
	KindTransport Kind = "transport"
	// KindParse marks a log-and-continue parse failure.
	KindParse Kind = "parse"
	// KindAuth maps to HTTP 401.
	KindAuth Kind = "auth"
	// KindBadRequest maps to HTTP 400.
	KindBadRequest Kind = "bad_request"
	// KindUpstream marks an external LLM failure; maps to HTTP 502.
	KindUpstream Kind = "upstream"
	// KindTimeout maps to HTTP 504.
	KindTimeout Kind = "timeout"
	// KindUnavailable marks the bus as disconnected; maps to HTTP 503.
	KindUnavailable Kind = "unavailable"
)

// Error is a typed error carrying a Kind for classification via
// errors.As, independent of the wrapped message text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that wraps err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// StatusCode maps a Kind onto its HTTP status code. Kinds with no
// direct HTTP mapping (Config, Transport, Parse) return 500 as a
// fallback; callers of those kinds are background tasks that never
// reach the HTTP layer.
func (k Kind) StatusCode() int {
	switch k {
	case KindAuth:
		return 401
	case KindBadRequest:
		return 400
	case KindUpstream:
		return 502
	case KindTimeout:
		return 504
	case KindUnavailable:
		return 503
	default:
		return 500
	}
}
