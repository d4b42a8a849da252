package ratelimiter

import (
	"sync"
	"time"
)

// SlidingWindowLog implements the RateLimiter interface using the sliding window log algorithm.
// Timestamps are kept in a ring buffer of size limit, so memory does not grow with traffic.
type SlidingWindowLog struct {
	limit  int
	window time.Duration
	stamps []time.Time // ring buffer, oldest at head
	head   int
	size   int
	now    func() time.Time
	mutex  sync.Mutex
}

// NewSlidingWindowLog creates a new SlidingWindowLog.
// limit: the maximum number of requests allowed in the window.
// window: the duration of the time window.
func NewSlidingWindowLog(limit int, window time.Duration) *SlidingWindowLog {
	return newSlidingWindowLog(limit, window, time.Now)
}

func newSlidingWindowLog(limit int, window time.Duration, now func() time.Time) *SlidingWindowLog {
	if limit < 0 {
		limit = 0
	}
	return &SlidingWindowLog{limit: limit, window: window, stamps: make([]time.Time, limit), now: now}
}

// Allow drops timestamps older than the window and admits the request if fewer than limit remain.
func (swl *SlidingWindowLog) Allow() bool {
	swl.mutex.Lock()
	defer swl.mutex.Unlock()

	now := swl.now()
	boundary := now.Add(-swl.window)
	for swl.size > 0 && swl.stamps[swl.head].Before(boundary) {
		swl.head = (swl.head + 1) % swl.limit
		swl.size--
	}

	if swl.size >= swl.limit {
		return false
	}
	swl.stamps[(swl.head+swl.size)%swl.limit] = now
	swl.size++
	return true
}
