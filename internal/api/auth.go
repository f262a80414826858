// Package api is the ops-only HTTP surface: health, Prometheus metrics,
// and a websocket feed of emitted signals. The user-facing dashboard and
// its CRUD surface are an explicit Non-goal; this package exists only to
// carry the ambient operability concerns (is the process up, is it
// keeping up, what just fired) that every long-running service in this
// corpus exposes regardless of its domain.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware validates a bearer token against token. An empty token
// disables auth entirely — acceptable for local development, never for
// a deployment with the ops surface reachable off-box.
func AuthMiddleware(token string, log *logrus.Entry) gin.HandlerFunc {
	if token == "" {
		log.Warn("OPS_AUTH_TOKEN is not set; ops surface is unauthenticated")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
