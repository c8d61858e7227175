package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Anan1218/homehealth/internal/observability"
)

// RateLimiter enforces per-client throttling for one scope.
type RateLimiter struct {
	scope   string
	limit   rate.Limit
	burst   int
	window  time.Duration
	metrics *observability.Metrics
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter for the provided requests-per-minute budget.
// A non-positive budget disables limiting and returns nil.
func NewRateLimiter(scope string, requestsPerMinute int, metrics *observability.Metrics) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		scope:   scope,
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
		window:  5 * time.Minute,
		metrics: metrics,
		clients: make(map[string]*clientLimiter),
	}
}

// Handler returns the gin middleware enforcing throttling behaviour.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		limiter := r.getLimiter(c.ClientIP())
		if !limiter.Allow() {
			r.metrics.RateLimited(r.scope)
			c.Header("Retry-After", strconv.Itoa(r.retryAfterSeconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests"})
			return
		}

		c.Next()
	}
}

func (r *RateLimiter) retryAfterSeconds() int {
	if r.limit <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(r.limit)))
}

func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(r.limit, r.burst)
	r.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	r.cleanupLocked(now)
	return limiter
}

func (r *RateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range r.clients {
		if now.Sub(entry.lastSeen) > r.window {
			delete(r.clients, key)
		}
	}
}
