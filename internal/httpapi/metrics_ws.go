// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/flywatch/flywatch/internal/metrics"
)

type metricsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleMetricsWS relays the metrics Collector's broadcast stream (C3,
// C5) over a WebSocket connection and pings on wsPingInterval, on the
// same connection. Every subscriber sees the same snapshot per tick;
// sampling on a per-connection ticker would call Sample directly and
// race on the platform sampler's shared CPU-delta state once more than
// one client is connected, so this mirrors handleLogsWS's Subscribe/
// Receive pattern rather than the original's combined send task.
func (s *Server) handleMetricsWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("metrics ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.state.Metrics.Broadcaster().Subscribe()
	defer s.state.Metrics.Broadcaster().Unsubscribe(sub)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var writeMu sync.Mutex
	var pongMu sync.Mutex
	lastPong := time.Now()
	conn.SetPongHandler(func(string) error {
		pongMu.Lock()
		lastPong = time.Now()
		pongMu.Unlock()
		return nil
	})

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	type snapshotMsg struct {
		snap   metrics.Snapshot
		lagged uint64
	}
	snapshots := make(chan snapshotMsg)
	go func() {
		for {
			msg, err := sub.Receive(ctx)
			if err != nil {
				return
			}
			select {
			case snapshots <- snapshotMsg{snap: msg.Item, lagged: msg.Lagged}:
			case <-ctx.Done():
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			pongMu.Lock()
			stale := time.Since(lastPong) > wsPingInterval+wsPongTimeout
			pongMu.Unlock()
			if stale {
				s.logger.Warn("metrics ws: pong timeout")
				return
			}
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(wsPingInterval))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}

		case msg := <-snapshots:
			var body []byte
			var err error
			if msg.lagged > 0 {
				body, err = json.Marshal(gin.H{"type": "lagged", "dropped": msg.lagged})
			} else {
				body, err = json.Marshal(metricsEvent{Type: "metrics", Data: msg.snap})
			}
			if err != nil {
				s.logger.Error("metrics ws: marshal failed", "error", err)
				continue
			}
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(wsPingInterval))
			err = conn.WriteMessage(websocket.TextMessage, body)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
