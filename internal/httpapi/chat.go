// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/flywatch/flywatch/internal/agent"
	"github.com/flywatch/flywatch/internal/flyerr"
)

// maxMessageLength bounds the chat message body (§4.5 Failure
// semantics, default 500 chars); longer requests are rejected before
// ever reaching the agent.
const maxMessageLength = 500

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	Model   string `json:"model"`
}

// handleChat runs one agent turn bounded by the server's configured
// chat timeout (default 60s, §5). It returns 501 when no LLM provider
// was configured at startup, matching the original's "absent API key
// disables chat" behavior.
func (s *Server) handleChat(c *gin.Context) {
	if s.agent == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": agent.ErrUnavailable.Error()})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	if utf8.RuneCountInString(req.Message) > maxMessageLength {
		status, msg := statusFromError(flyerr.New(flyerr.KindBadRequest, "message exceeds %d characters", maxMessageLength))
		c.JSON(status, gin.H{"error": msg})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	result, err := s.agent.Run(ctx, agent.Request{Message: req.Message, Model: req.Model})
	if err != nil {
		status, msg := statusFromError(err)
		if ctx.Err() == context.DeadlineExceeded {
			status = flyerr.KindTimeout.StatusCode()
			msg = "chat request exceeded the configured timeout"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, result)
}
