package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/response"
)

// TokenBucket is an in-memory per-key rate limiter refilled at rate tokens
// per minute up to capacity.
type TokenBucket struct {
	capacity int
	rate     int
	mu       sync.Mutex
	state    map[string]*bucket
	swept    time.Time
	now      func() time.Time
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewTokenBucket creates a limiter. A non-positive capacity defaults to the
// per-minute rate.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if perMinute <= 0 {
		perMinute = 10
	}
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: capacity,
		rate:     perMinute,
		state:    make(map[string]*bucket),
		now:      time.Now,
	}
}

// RateLimit rejects requests from client IPs that exhausted their bucket.
func RateLimit(limiter *TokenBucket) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !limiter.Allow(ip) {
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, "too many unlock attempts, try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow consumes a token for key when one is available.
func (l *TokenBucket) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true
	}

	interval := l.interval()
	if refill := int(now.Sub(b.last) / interval); refill > 0 {
		b.tokens += refill
		if b.tokens >= l.capacity {
			b.tokens = l.capacity
			b.last = now
		} else {
			b.last = b.last.Add(time.Duration(refill) * interval)
		}
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// interval is the time needed to earn one token.
func (l *TokenBucket) interval() time.Duration {
	return time.Minute / time.Duration(l.rate)
}

// sweep drops buckets that have refilled completely; a missing key behaves
// like a full bucket. Runs at most once per minute.
func (l *TokenBucket) sweep(now time.Time) {
	if now.Sub(l.swept) < time.Minute {
		return
	}
	l.swept = now

	interval := l.interval()
	for key, b := range l.state {
		if now.Sub(b.last) >= time.Duration(l.capacity-b.tokens)*interval {
			delete(l.state, key)
		}
	}
}
