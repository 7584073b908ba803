// Package ratelimit limits HTTP requests per client IP.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"labelbus/pkg/errors"
	"labelbus/pkg/metrics"
)

type Config struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() Config {
	return Config{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

var ErrRateLimited = errors.NewError("RATE_LIMIT_EXCEEDED", "rate limit exceeded", http.StatusTooManyRequests)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client IP.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	clients map[string]*client
}

func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		clients: make(map[string]*client),
	}
}

// Allow reports whether key may make a request now.
func (l *Limiter) Allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.clients[key] = c
	}
	c.lastSeen = time.Now()

	if !c.limiter.Allow() {
		return false, 0
	}
	remaining := int(c.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Cleanup forgets clients idle for longer than MaxAge.
func (l *Limiter) Cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.cfg.MaxAge {
			delete(l.clients, key)
		}
	}
}

// Run calls Cleanup every CleanupInterval until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	if l.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Cleanup(now)
		}
	}
}

func (l *Limiter) Middleware() gin.HandlerFunc {
	limit := strconv.Itoa(int(l.cfg.RPS))

	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = c.RemoteIP()
		}

		ok, remaining := l.Allow(key)
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !ok {
			metrics.AdminRateLimitTotal.WithLabelValues("limited").Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errors.ToErrorResponse(ErrRateLimited))
			return
		}

		metrics.AdminRateLimitTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
