package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/response"
)

// bucket tracks the remaining request budget of one client IP.
type bucket struct {
	remaining int
	refilled  time.Time
}

// RateLimiter is a per-IP fixed-budget limiter: each IP may spend rate
// requests per interval. Used on the login route, where credential
// stuffing is the concern; authenticated routes are not limited.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     int
	interval time.Duration
}

// NewRateLimiter creates a limiter allowing rate requests per interval
// and starts its background sweep of idle buckets.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
	}
	go rl.sweep()
	return rl
}

// Middleware returns the Gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{remaining: rl.rate, refilled: time.Now()}
		rl.buckets[ip] = b
	}

	if elapsed := time.Since(b.refilled); elapsed >= rl.interval {
		b.remaining = rl.rate
		b.refilled = time.Now()
	}

	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// sweep drops buckets idle for several intervals so one-off clients do
// not pin memory forever.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := 3 * rl.interval
		rl.mu.Lock()
		for ip, b := range rl.buckets {
			if time.Since(b.refilled) > cutoff {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}
