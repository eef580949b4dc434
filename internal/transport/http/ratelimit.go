package http

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a fixed-window limiter keyed by caller. All windows reset together.
type rateLimiter struct {
	limit int

	mu       sync.Mutex
	counters map[string]int
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit:    limit,
		counters: make(map[string]int),
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[key]++
	return r.counters[key] <= r.limit
}

func (r *rateLimiter) clear() {
	r.mu.Lock()
	r.counters = make(map[string]int)
	r.mu.Unlock()
}

// startReset clears all windows every minute until ctx is done. The returned
// channel is closed once the reset goroutine has exited.
func (r *rateLimiter) startReset(ctx context.Context) <-chan struct{} {
	return r.resetEvery(ctx, time.Minute)
}

func (r *rateLimiter) resetEvery(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if r == nil || r.limit <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.clear()
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
