package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turtacn/OperaLab/pkg/errors"
)

// RateLimitConfig configures per-client throttling.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate; Burst the bucket size.
	RequestsPerSecond float64
	Burst             int

	// IdleTTL drops the limiter of a client idle for this long.
	IdleTTL time.Duration

	// SkipPaths are never throttled.
	SkipPaths []string

	// KeyFunc extracts the client key; defaults to the client IP.
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig returns 20 requests per second with a burst of 40,
// skipping the probe and metrics endpoints.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		Burst:             40,
		IdleTTL:           10 * time.Minute,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds one token bucket per client key.
type Limiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewLimiter creates a Limiter from cfg.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Limiter{cfg: cfg, clients: make(map[string]*clientLimiter), now: time.Now}
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	l.sweep(now)
	return cl.limiter.AllowN(now, 1)
}

// sweep drops idle clients.  It must be called with mu held.
func (l *Limiter) sweep(now time.Time) {
	if l.cfg.IdleTTL <= 0 {
		return
	}
	for k, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.cfg.IdleTTL {
			delete(l.clients, k)
		}
	}
}

// Clients returns the number of tracked clients.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit rejects requests over the limit with 429 and a Retry-After
// header.
func RateLimit(l *Limiter) gin.HandlerFunc {
	skip := make(map[string]bool, len(l.cfg.SkipPaths))
	for _, p := range l.cfg.SkipPaths {
		skip[p] = true
	}
	limit := strconv.Itoa(l.cfg.Burst)

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", limit)
		if !l.Allow(l.cfg.KeyFunc(c)) {
			c.Header("Retry-After", "1")
			code := errors.ErrCodeRateLimited
			c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), gin.H{
				"code":    code.String(),
				"message": errors.DefaultMessageForCode(code),
			})
			return
		}
		c.Next()
	}
}
