package service

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces requests against a rolling-window quota. The FEC
// enforces an hourly limit per API key; the limiter is sized below the
// documented quota so shared-key contention and rolling-window effects
// do not push a long crawl over the line. One limiter instance must be
// shared by every caller using the same API key.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	minDelay time.Duration
	calls    []time.Time
	last     time.Time
}

// NewRateLimiter creates a limiter allowing at most limit calls per
// window, with at least minDelay between consecutive calls.
func NewRateLimiter(limit int, window, minDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		minDelay: minDelay,
	}
}

// Wait blocks until the next call fits the budget, or until ctx is
// cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		wait := r.nextWait(now)
		if wait <= 0 {
			r.calls = append(r.calls, now)
			r.last = now
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// nextWait returns how long the caller must wait before the next call
// is admissible. Caller holds the lock.
func (r *RateLimiter) nextWait(now time.Time) time.Duration {
	// Drop calls that have aged out of the window.
	cutoff := now.Add(-r.window)
	kept := r.calls[:0]
	for _, t := range r.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.calls = kept

	if !r.last.IsZero() {
		if d := r.minDelay - now.Sub(r.last); d > 0 {
			return d
		}
	}

	if r.limit > 0 && len(r.calls) >= r.limit {
		return r.calls[0].Add(r.window).Sub(now)
	}

	return 0
}
