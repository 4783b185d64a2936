// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status            string  `json:"status"`
	NATSConnected     bool    `json:"nats_connected"`
	ActiveConnections int64   `json:"active_connections"`
	MessagesForwarded uint64  `json:"messages_forwarded"`
	UptimeSec         float64 `json:"uptime_seconds"`
}

// handleHealth reports the process's actual bus/connection state
// rather than a bare liveness pulse: status is "healthy" iff the bus
// subscription is connected, "degraded" otherwise (§4.6).
func (s *Server) handleHealth(c *gin.Context) {
	connected := s.state.BusConnected()
	status := "degraded"
	if connected {
		status = "healthy"
	}

	gauges := s.state.Gauges()
	c.JSON(http.StatusOK, healthResponse{
		Status:            status,
		NATSConnected:     connected,
		ActiveConnections: gauges.ActiveSSEConnections + gauges.ActiveWSConnections,
		MessagesForwarded: s.state.Counters().MessagesForwarded,
		UptimeSec:         time.Since(s.state.StartedAt).Seconds(),
	})
}

// handleHealthz is a trivial liveness probe, distinct from
// handleHealth: it answers as soon as the process can serve HTTP at
// all, with no dependency on bus connectivity (§4.6).
func (s *Server) handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// handleReady returns 503 whenever the bus subscription is not
// currently connected (before the first connect and after any
// disconnect), so a load balancer can hold traffic until log lines
// have a path to the buffer.
func (s *Server) handleReady(c *gin.Context) {
	if !s.state.BusConnected() {
		c.String(http.StatusServiceUnavailable, "not ready - bus disconnected")
		return
	}
	c.String(http.StatusOK, "ready")
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.Metrics.Sample())
}

func (s *Server) handleBufferStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.Buffer.Summary())
}

func (s *Server) handleUsage(c *gin.Context) {
	if s.usage == nil {
		c.JSON(http.StatusOK, gin.H{
			"total_requests": 0,
			"total_tokens":   0,
			"total_cost_usd": 0,
		})
		return
	}
	c.JSON(http.StatusOK, s.usage.Stats())
}
