package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirechat-dispatch/internal/metrics"
)

type rateWindow struct {
	start time.Time
	count int
}

// rateLimiter allows limit requests per user per window.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[int64]*rateWindow
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[int64]*rateWindow),
	}
}

func (r *rateLimiter) allow(userID int64) bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[userID]
	if !ok || now.Sub(w.start) >= r.window {
		if len(r.windows) > 1024 {
			r.sweep(now)
		}
		r.windows[userID] = &rateWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= r.limit
}

// sweep drops expired windows. Caller holds mu.
func (r *rateLimiter) sweep(now time.Time) {
	for id, w := range r.windows {
		if now.Sub(w.start) >= r.window {
			delete(r.windows, id)
		}
	}
}

// RateLimitMiddleware rejects authenticated users exceeding the limiter.
func RateLimitMiddleware(limiter *rateLimiter, endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := c.Get(ContextKeyUserID)
		id, _ := uid.(int64)
		if !limiter.allow(id) {
			metrics.RateLimitHits.WithLabelValues(endpoint).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
			return
		}
		c.Next()
	}
}
