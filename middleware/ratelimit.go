package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"media-site-service/metrics"
	"media-site-service/utils"
)

type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

// RateLimiter counts requests per client IP in fixed windows.
type RateLimiter struct {
	name    string
	max     int
	window  time.Duration
	message string

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows limit requests per IP per window. Rejections answer
// 429 with message. Call Close to stop the cleanup goroutine.
func NewRateLimiter(name string, limit int, window time.Duration, message string) *RateLimiter {
	rl := &RateLimiter{
		name:    name,
		max:     limit,
		window:  window,
		message: message,
		entries: make(map[string]*rateLimitEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow records one request from ip and reports whether it is within the
// limit, with the remaining allowance and the window reset time.
func (rl *RateLimiter) Allow(ip string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.entries[ip]
	if !exists || now.After(entry.resetTime) {
		entry = &rateLimitEntry{resetTime: now.Add(rl.window)}
		rl.entries[ip] = entry
	}

	entry.count++
	remaining := rl.max - entry.count
	if remaining < 0 {
		remaining = 0
	}
	return entry.count <= rl.max, remaining, entry.resetTime
}

// Reset forgets ip's count for the current window.
func (rl *RateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, ip)
}

// Middleware enforces the limit and sets the RateLimit-* headers. Clients are
// keyed on gin's ClientIP, which only honors forwarding headers sent by the
// engine's trusted proxies.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, reset := rl.Allow(c.ClientIP())

		secs := int(time.Until(reset).Seconds())
		if secs < 0 {
			secs = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(rl.max))
		c.Header("RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(secs))

		if !allowed {
			metrics.RateLimitHits.WithLabelValues(rl.name).Inc()
			c.Header("Retry-After", strconv.Itoa(secs))
			utils.TooManyRequestsResponse(c, rl.message)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, entry := range rl.entries {
		if now.After(entry.resetTime) {
			delete(rl.entries, key)
		}
	}
}
