package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"rentalcash/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per client within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*rateEntry
	limit     int
	window    time.Duration
	nextPurge time.Time
	now       func() time.Time
}

const purgeInterval = 5 * time.Minute

// RateLimiter allows limit requests per window per client IP. limit <= 0
// disables it.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newRateLimiter(limit, window, time.Now).handle
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{entries: make(map[string]*rateEntry), limit: limit, window: window, now: now}
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.limit <= 0 {
		c.Next()
		return
	}
	retryAfter, ok := l.allow(c.ClientIP())
	if !ok {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.WithCode("RATE_LIMITED", "too many requests, retry shortly", nil))
		return
	}
	c.Next()
}

func (l *rateLimiter) allow(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.nextPurge) {
		l.purge(now)
		l.nextPurge = now.Add(purgeInterval)
	}

	entry, exists := l.entries[key]
	if !exists || now.After(entry.windowEnd) {
		entry = &rateEntry{windowEnd: now.Add(l.window)}
		l.entries[key] = entry
	}
	entry.count++
	if entry.count > l.limit {
		return entry.windowEnd.Sub(now), false
	}
	return 0, true
}

// purge drops expired windows so idle clients do not accumulate.
func (l *rateLimiter) purge(now time.Time) {
	purged := 0
	for key, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, key)
			purged++
		}
	}
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.entries)).Msg("rate limiter entries purged")
	}
}
