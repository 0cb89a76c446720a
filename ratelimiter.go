package main

import (
	"container/list"
	"sync"
	"time"
)

const rateLimiterCleanupInterval = time.Minute

// slidingWindow is the fixed sliding-window width: 60 seconds.
const slidingWindow = 60 * time.Second

// RateLimiter enforces a sliding-window request cap per client IP. Created
// once at startup; its buckets live and die for the life of the server.
//
// The per-IP map-plus-cleanup-goroutine shape mirrors the rate limiters
// elsewhere in this dependency pack (client-map with a background ticker
// pruning stale entries); the window itself is implemented with a
// container/list.List of timestamps per bucket rather than a token bucket,
// since requests in the trailing 60 seconds are counted directly rather
// than approximated by a refill rate.
type RateLimiter struct {
	enabled bool
	limit   int

	mu      sync.Mutex
	buckets map[string]*rateBucket

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

type rateBucket struct {
	mu          sync.Mutex
	timestamps  *list.List // front = oldest
	lastTouched time.Time
}

// NewRateLimiter builds a RateLimiter. When enabled is false, Allow always
// returns true and no bucket is ever created.
func NewRateLimiter(enabled bool, requestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		enabled:     enabled,
		limit:       requestsPerMinute,
		buckets:     make(map[string]*rateBucket),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	if enabled {
		go rl.cleanupLoop()
	} else {
		close(rl.cleanupDone)
	}
	return rl
}

// Allow reports whether a request from ip should be accepted, pruning
// timestamps older than the 60-second window and, if the request is
// admitted, recording it.
func (rl *RateLimiter) Allow(ip string) bool {
	if !rl.enabled {
		return true
	}

	bucket := rl.bucketFor(ip)

	now := time.Now()
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	pruneBefore(bucket.timestamps, now.Add(-slidingWindow))
	bucket.lastTouched = now

	if bucket.timestamps.Len() >= rl.limit {
		return false
	}
	bucket.timestamps.PushBack(now)
	return true
}

func (rl *RateLimiter) bucketFor(ip string) *rateBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &rateBucket{timestamps: list.New(), lastTouched: time.Now()}
		rl.buckets[ip] = b
	}
	return b
}

// pruneBefore drops every timestamp older than cutoff from the front of the
// (time-ordered) list.
func pruneBefore(l *list.List, cutoff time.Time) {
	for front := l.Front(); front != nil; front = l.Front() {
		if front.Value.(time.Time).After(cutoff) {
			return
		}
		l.Remove(front)
	}
}

// cleanupLoop periodically removes buckets that have had no activity since
// the previous sweep, bounding memory under high IP churn.
func (rl *RateLimiter) cleanupLoop() {
	defer close(rl.cleanupDone)

	ticker := time.NewTicker(rateLimiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		b.mu.Lock()
		pruneBefore(b.timestamps, now.Add(-slidingWindow))
		empty := b.timestamps.Len() == 0 && now.Sub(b.lastTouched) > rateLimiterCleanupInterval
		b.mu.Unlock()

		if empty {
			delete(rl.buckets, ip)
		}
	}
}

// Close stops the background cleanup goroutine. Safe to call even when the
// limiter was constructed disabled.
func (rl *RateLimiter) Close() {
	if !rl.enabled {
		return
	}
	close(rl.stopCleanup)
	<-rl.cleanupDone
}
