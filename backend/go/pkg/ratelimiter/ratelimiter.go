package ratelimiter

import (
	"time"

	"DocQA/backend/go/pkg/util"
)

// RateLimiter is the interface for rate limiting.
// It defines a single method, Allow, which returns true if a request is allowed,
// and false otherwise.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// Factory creates a fresh limiter for a new key.
type Factory func() RateLimiter

// Keyed keeps one limiter per key (for example per client IP).
// Idle keys are evicted by an LRU so memory stays bounded.
type Keyed struct {
	factory  Factory
	limiters *util.LRUCache[string, RateLimiter]
}

// NewKeyed creates a Keyed limiter holding at most maxKeys limiters; a key unused for idle is forgotten.
func NewKeyed(factory Factory, maxKeys int, idle time.Duration) (*Keyed, error) {
	cache, err := util.NewLRU[string, RateLimiter](maxKeys, idle)
	if err != nil {
		return nil, err
	}
	return &Keyed{factory: factory, limiters: cache}, nil
}

// Allow reports whether a request for key may proceed.
func (k *Keyed) Allow(key string) bool {
	l, ok := k.limiters.Get(key)
	if !ok {
		l = k.factory()
		k.limiters.Put(key, l)
	}
	return l.Allow()
}
