// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// authMiddleware enforces the bearer-token check from spec.md §5: if
// token is empty, every endpoint is anonymous. Otherwise every
// endpoint except the health/ready group (registered before this
// middleware runs, see router.go) requires an exact
// "Authorization: Bearer <token>" match. The comparison is
// constant-time so response latency doesn't leak how many leading
// bytes of the token matched.
func authMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}

		candidate := header[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
