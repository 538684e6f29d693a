package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	RequestsPerMinute int           // Sustained requests per client per minute
	BurstSize         int           // Allow burst of N requests
	CleanupInterval   time.Duration // How often to drop idle clients
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter keeps one token bucket per client IP.
type ClientRateLimiter struct {
	config      RateLimiterConfig
	clients     map[string]*clientLimiter
	mu          sync.Mutex
	logger      *zap.Logger
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewClientRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Stop when done.
func NewClientRateLimiter(config RateLimiterConfig, logger *zap.Logger) *ClientRateLimiter {
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := &ClientRateLimiter{
		config:      config,
		clients:     make(map[string]*clientLimiter),
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	go limiter.cleanupRoutine()

	return limiter
}

// cleanupRoutine periodically removes idle clients
func (l *ClientRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *ClientRateLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, client := range l.clients {
		if now.Sub(client.lastSeen) > l.config.CleanupInterval {
			delete(l.clients, key)
			removed++
		}
	}
	if removed > 0 {
		l.logger.Debug("Cleaned up rate limiter cache", zap.Int("removed", removed), zap.Int("remaining", len(l.clients)))
	}
}

// Stop stops the cleanup routine
func (l *ClientRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

func (l *ClientRateLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	client, ok := l.clients[key]
	if !ok {
		limit := rate.Limit(float64(l.config.RequestsPerMinute) / 60.0)
		if l.config.RequestsPerMinute <= 0 {
			limit = rate.Inf
		}
		client = &clientLimiter{limiter: rate.NewLimiter(limit, l.config.BurstSize)}
		l.clients[key] = client
	}
	client.lastSeen = now
	return client.limiter
}

// Allow consumes a token for key and reports whether the request may proceed
// together with the tokens left.
func (l *ClientRateLimiter) Allow(key string) (allowed bool, remaining int) {
	now := time.Now()
	limiter := l.get(key, now)
	allowed = limiter.AllowN(now, 1)
	remaining = int(math.Max(0, math.Floor(limiter.TokensAt(now))))
	return allowed, remaining
}

// retryAfter is the number of seconds until one token is available again.
func (l *ClientRateLimiter) retryAfter() int {
	if l.config.RequestsPerMinute <= 0 {
		return 0
	}
	return int(math.Ceil(60.0 / float64(l.config.RequestsPerMinute)))
}

// RateLimitMiddleware creates a Gin middleware for per-client rate limiting
func RateLimitMiddleware(limiter *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		allowed, remaining := limiter.Allow(key)
		limit := limiter.config.BurstSize

		// Add rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retryAfter := limiter.retryAfter()
			Logger(c, limiter.logger).Warn("Rate limit exceeded",
				zap.String("client", key),
				zap.Int("limit", limit))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
