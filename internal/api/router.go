package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/solflowhq/solflow/internal/blocklist"
	"github.com/solflowhq/solflow/internal/pipeline"
)

// HealthSource is the subset of pipeline.Engine the health endpoint
// reports on.
type HealthSource interface {
	LiveMintCount() int
	ChannelUsage() (inFlight, capacity int)
}

var _ HealthSource = (*pipeline.Engine)(nil)

// NewRouter builds the ops-only HTTP surface: /healthz, /metrics, and a
// websocket signal feed at /ops/signals/stream. authToken empty disables
// auth.
func NewRouter(engine HealthSource, blocked *blocklist.Store, hub *SignalHub, authToken string, log *logrus.Entry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	limiter := NewRateLimiter(120, 30)
	// A websocket upgrade is one request per connection, held open
	// afterward — legitimate reconnects are rare compared to a JSON
	// endpoint's polling, so this route draws from a far tighter budget.
	limiter.SetRouteLimit("/ops/signals/stream", 10, 3)

	r.GET("/healthz", limiter.Middleware(), func(c *gin.Context) {
		inFlight, capacity := engine.ChannelUsage()
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"live_mints":      engine.LiveMintCount(),
			"channel_in_use":  inFlight,
			"channel_cap":     capacity,
			"blocked_mints":   blockedSize(blocked),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := r.Group("/ops")
	protected.Use(AuthMiddleware(authToken, log), limiter.Middleware())
	protected.GET("/signals/stream", hub.Subscribe)

	return r
}

func blockedSize(s *blocklist.Store) int {
	if s == nil {
		return 0
	}
	return s.Size()
}
