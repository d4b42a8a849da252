package ratelimiter

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket implements the RateLimiter interface using the token bucket algorithm.
// It allows for bursts of requests up to the bucket's capacity.
type TokenBucket struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewTokenBucket creates a new TokenBucket that starts full.
// rate is tokens generated per second, capacity the burst size.
func NewTokenBucket(r float64, capacity int) *TokenBucket {
	return newTokenBucket(r, capacity, time.Now)
}

func newTokenBucket(r float64, capacity int, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(r), capacity),
		now:     now,
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.AllowN(tb.now(), 1)
}
