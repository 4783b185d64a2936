// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flywatch/flywatch/internal/broadcast"
	"github.com/flywatch/flywatch/internal/record"
)

const sseKeepAliveInterval = 15 * time.Second

// handleLogsSSE streams the log broadcaster as Server-Sent Events: one
// "data: <json>" frame per record, and a ": lagged <n>" comment frame
// when the subscriber lags and a block of records was dropped (§4.6).
// A ": keepalive" comment frame is sent every sseKeepAliveInterval of
// wall-clock inactivity so proxies don't time the connection out while
// it's otherwise idle. sub.Receive blocks indefinitely when the stream
// is quiet, so it runs in its own goroutine feeding a channel the main
// loop can select against alongside the keep-alive ticker.
func (s *Server) handleLogsSSE(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	sub := s.state.LogBroadcaster.Subscribe()
	defer s.state.LogBroadcaster.Unsubscribe(sub)

	s.state.SSEConnectionOpened()
	defer s.state.SSEConnectionClosed()

	ctx := c.Request.Context()
	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	flusher, canFlush := c.Writer.(http.Flusher)

	msgs := make(chan broadcast.Message[record.Record])
	go func() {
		for {
			msg, err := sub.Receive(ctx)
			if err != nil {
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-msgs:
			if msg.Lagged > 0 {
				fmt.Fprintf(c.Writer, ": lagged %d\n\n", msg.Lagged)
			} else {
				body, err := json.Marshal(msg.Item)
				if err != nil {
					s.logger.Warn("sse: marshal record failed", "error", err)
					continue
				}
				fmt.Fprintf(c.Writer, "data: %s\n\n", body)
			}
			if canFlush {
				flusher.Flush()
			}

		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			if canFlush {
				flusher.Flush()
			}
		}
	}
}
