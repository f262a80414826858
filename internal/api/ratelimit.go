package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const cleanupIdleDuration = 10 * time.Minute

type ipBucket struct {
	tokens   float64
	lastSeen time.Time
	mu       sync.Mutex
}

// routeLimits is the token-bucket rate/burst pair applied to one route.
type routeLimits struct {
	ratePerSec float64
	burst      float64
}

// RateLimiter is a per-(route, IP) token bucket guarding the ops surface.
// Unlike a single flat per-IP budget, each route carries its own limits:
// a short-lived JSON endpoint like /healthz is legitimately polled far
// more often than /ops/signals/stream, whose legitimate traffic is one
// websocket upgrade per client followed by a long-lived connection with
// no further HTTP requests — what needs bounding there is reconnect
// churn, not steady request rate. Routes without an explicit override
// share the default budget.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*ipBucket
	def      routeLimits
	perRoute map[string]routeLimits
}

// NewRateLimiter sets the default budget (ratePerMin requests per minute
// per IP, with the given burst) applied to any route without an
// explicit override.
func NewRateLimiter(ratePerMin, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*ipBucket),
		def:      routeLimits{ratePerSec: float64(ratePerMin) / 60.0, burst: float64(burst)},
		perRoute: make(map[string]routeLimits),
	}
	go rl.cleanupLoop()
	return rl
}

// SetRouteLimit overrides the default budget for one route.
func (rl *RateLimiter) SetRouteLimit(route string, ratePerMin, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.perRoute[route] = routeLimits{ratePerSec: float64(ratePerMin) / 60.0, burst: float64(burst)}
}

func (rl *RateLimiter) limitsFor(route string) routeLimits {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.perRoute[route]; ok {
		return l
	}
	return rl.def
}

func (rl *RateLimiter) allow(key string, limits routeLimits) (bool, time.Duration) {
	rl.mu.Lock()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &ipBucket{tokens: limits.burst}
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastSeen).Seconds()
	bucket.tokens += elapsed * limits.ratePerSec
	if bucket.tokens > limits.burst {
		bucket.tokens = limits.burst
	}
	bucket.lastSeen = now

	if bucket.tokens >= 1.0 {
		bucket.tokens--
		return true, 0
	}

	retryAfter := time.Duration((1.0-bucket.tokens)/limits.ratePerSec*1000) * time.Millisecond
	return false, retryAfter
}

// Middleware enforces the rate limit as a Gin handler, scoped to the
// matched route pattern so each endpoint draws from its own budget
// rather than one shared per-IP bucket.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		limits := rl.limitsFor(route)
		key := route + "|" + c.ClientIP()

		allowed, retryAfter := rl.allow(key, limits)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"retryAfter": retryAfter.String(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupIdleDuration)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-cleanupIdleDuration)
		rl.mu.Lock()
		for key, b := range rl.buckets {
			b.mu.Lock()
			idle := b.lastSeen.Before(cutoff)
			b.mu.Unlock()
			if idle {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}
