package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/livecommerce/console/internal/logging"
)

// ClientRateLimiter throttles mutating console requests per client IP with a
// token bucket refilled at perMinute requests per minute.
type ClientRateLimiter struct {
	limit   rate.Limit
	burst   int
	clients map[string]*clientLimit
	mutex   sync.Mutex
	idleTTL time.Duration
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter creates a limiter. A non-positive perMinute disables limiting.
func NewClientRateLimiter(perMinute int) *ClientRateLimiter {
	l := &ClientRateLimiter{
		limit:   rate.Inf,
		clients: make(map[string]*clientLimit),
		idleTTL: 10 * time.Minute,
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = max(1, perMinute/6)
	}
	return l
}

func (l *ClientRateLimiter) limiterFor(key string) *rate.Limiter {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := time.Now()
	entry, ok := l.clients[key]
	if !ok {
		entry = &clientLimit{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Cleanup drops limiters idle for longer than the TTL.
func (l *ClientRateLimiter) Cleanup() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	cutoff := time.Now().Add(-l.idleTTL)
	removed := 0
	for key, entry := range l.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// RateLimit is a middleware that rejects clients over their budget with 429.
func (l *ClientRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit == rate.Inf {
			c.Next()
			return
		}
		if !l.limiterFor(c.ClientIP()).Allow() {
			logging.WarnWithComponent(logging.ComponentHandlers, "Rate limit exceeded", "ip", c.ClientIP(), "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "rate_limited",
				"message": "Too many requests",
				"hint":    "Wait a moment before retrying",
			})
			return
		}
		c.Next()
	}
}

// RequestSizeLimit rejects bodies larger than maxKB kilobytes.
func RequestSizeLimit(maxKB int) gin.HandlerFunc {
	maxBytes := int64(maxKB) * 1024
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			logging.WarnWithComponent(logging.ComponentHandlers, "Request too large", "size", c.Request.ContentLength, "limit", maxBytes, "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"code":    "payload_too_large",
				"message": "Request payload too large",
				"hint":    fmt.Sprintf("Maximum size is %dKB", maxKB),
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RequestLogger logs each request through the structured logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		args := []any{
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logging.ErrorWithComponent(logging.ComponentHandlers, "Request failed", args...)
		case status >= 400:
			logging.WarnWithComponent(logging.ComponentHandlers, "Request rejected", args...)
		default:
			logging.DebugWithComponent(logging.ComponentHandlers, "Request served", args...)
		}
	}
}
