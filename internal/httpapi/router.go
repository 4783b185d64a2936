// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi is the HTTP surface (C7): health/readiness, the
// log/metrics SSE and WebSocket streams, the metrics snapshot, usage
// stats, and the chat agent endpoint, wired over gin.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/flywatch/flywatch/internal/agent"
	"github.com/flywatch/flywatch/internal/flyerr"
	"github.com/flywatch/flywatch/internal/state"
)

// Server wires SharedState and the optional Agent into a gin engine.
type Server struct {
	state    *state.SharedState
	agent    *agent.Agent // nil when chat is not configured
	usage    *agent.UsageTracker
	token    string
	timeout  time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

// Config bundles Server's construction parameters.
type Config struct {
	State       *state.SharedState
	Agent       *agent.Agent // may be nil (chat disabled)
	Usage       *agent.UsageTracker
	AuthToken   string
	ChatTimeout time.Duration
	Logger      *slog.Logger
}

// New builds the gin engine and registers every route.
func New(cfg Config) *Server {
	s := &Server{
		state:   cfg.State,
		agent:   cfg.Agent,
		usage:   cfg.Usage,
		token:   cfg.AuthToken,
		timeout: cfg.ChatTimeout,
		logger:  cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	// Health/readiness are always anonymous, per §5; everything else
	// goes through authMiddleware.
	engine.GET("/health", s.handleHealth)
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/ready", s.handleReady)

	authed := engine.Group("/")
	authed.Use(authMiddleware(s.token))
	authed.GET("/metrics", s.handleMetrics)
	authed.GET("/logs/stream", s.handleLogsSSE)
	authed.GET("/logs/ws", s.handleLogsWS)
	authed.GET("/metrics/ws", s.handleMetricsWS)
	authed.GET("/logs/buffer/stats", s.handleBufferStats)
	authed.GET("/usage", s.handleUsage)
	authed.POST("/chat", s.handleChat)

	s.engine = engine
	return s
}

// Handler returns the http.Handler to pass to http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func statusFromError(err error) (int, string) {
	var fe *flyerr.Error
	if asFlyerr(err, &fe) {
		return fe.Kind.StatusCode(), fe.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

func asFlyerr(err error, target **flyerr.Error) bool {
	for err != nil {
		if fe, ok := err.(*flyerr.Error); ok {
			*target = fe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
