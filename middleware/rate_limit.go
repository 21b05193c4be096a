package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AnTengye/legalanalyzer/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// KeyFunc picks the bucket a request is counted against
type KeyFunc func(c *gin.Context) string

// ByClientIP counts requests per client address
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// BySession counts requests per authenticated session, falling back to the
// client address before authentication
func BySession(c *gin.Context) string {
	if id := GetSessionID(c); id != "" {
		return "session:" + id
	}
	return ByClientIP(c)
}

// RateLimiter is a fixed-window counter per key. Each key's window starts
// with its first request and the counter expires with the window.
type RateLimiter struct {
	counts *cache.Cache
	rate   int
	window time.Duration
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counts: cache.New(window, window),
		rate:   rate,
		window: window,
	}
}

// Allow counts one request for key and reports whether it is within the limit
func (l *RateLimiter) Allow(key string) bool {
	if err := l.counts.Add(key, 1, l.window); err == nil {
		return l.rate >= 1
	}
	n, err := l.counts.IncrementInt(key, 1)
	if err != nil {
		// the window expired between Add and Increment
		l.counts.Set(key, 1, l.window)
		return l.rate >= 1
	}
	return n <= l.rate
}

// RateLimit middleware limits requests per key
func RateLimit(rate int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	limiter := NewRateLimiter(rate, window)
	if key == nil {
		key = ByClientIP
	}

	return func(c *gin.Context) {
		k := key(c)
		if !limiter.Allow(k) {
			logger.Warn(c.Request.Context(), "rate limit exceeded", "key", k)

			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
