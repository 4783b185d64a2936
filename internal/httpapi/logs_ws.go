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

	"github.com/flywatch/flywatch/internal/broadcast"
	"github.com/flywatch/flywatch/internal/record"
)

// wsPingInterval/wsPongTimeout/wsMaxFrameBytes mirror the bus-relay
// original's keep-alive and frame-size conventions.
const (
	wsPingInterval  = 30 * time.Second
	wsPongTimeout   = 10 * time.Second
	wsMaxFrameBytes = 64 * 1024
)

// handleLogsWS streams the log broadcaster over a WebSocket connection.
// Three goroutines cooperate: one pings on wsPingInterval and watches
// for a pong timeout, one drains inbound frames (pongs, client close),
// and the caller's own goroutine pumps broadcast messages out. writeMu
// serializes writes across the ping and pump goroutines, since gorilla
// forbids concurrent writers on one connection.
func (s *Server) handleLogsWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("logs ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.state.WSConnectionOpened()
	defer s.state.WSConnectionClosed()

	sub := s.state.LogBroadcaster.Subscribe()
	defer s.state.LogBroadcaster.Unsubscribe(sub)

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

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pongMu.Lock()
				stale := time.Since(lastPong) > wsPingInterval+wsPongTimeout
				pongMu.Unlock()
				if stale {
					s.logger.Warn("logs ws: pong timeout")
					cancel()
					return
				}
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(wsPingInterval))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		msg, err := sub.Receive(ctx)
		if err != nil {
			return
		}

		writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(wsPingInterval))
		err = writeLogMessage(conn, msg)
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func writeLogMessage(conn *websocket.Conn, msg broadcast.Message[record.Record]) error {
	if msg.Lagged > 0 {
		payload, _ := json.Marshal(gin.H{
			"type":    "lagged",
			"dropped": msg.Lagged,
		})
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	body, err := json.Marshal(msg.Item)
	if err != nil {
		return nil
	}
	if len(body) > wsMaxFrameBytes {
		body = body[:wsMaxFrameBytes]
	}
	return conn.WriteMessage(websocket.TextMessage, body)
}
