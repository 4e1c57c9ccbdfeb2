// Package ratelimit implements a fixed-window request throttle keyed by caller.
//
// The policy is approximate and burst tolerant: a quota of Limit requests is
// granted per window and the window restarts on the first request after it
// elapses. It is not a sliding window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of a single Check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterMs is the retry hint in milliseconds.
func (r Result) RetryAfterMs() int64 {
	return r.RetryAfter.Milliseconds()
}

// Limiter is satisfied by the memory and redis backends.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps buckets in process memory.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryLimiter creates a limiter allowing limit calls per window and key.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// WithClock replaces the time source, for tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

// Check records one call for key and reports whether it is allowed.
func (l *MemoryLimiter) Check(_ context.Context, key string) (Result, error) {
	return l.check(key), nil
}

func (l *MemoryLimiter) check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	current, ok := l.buckets[key]

	if !ok || !current.resetAt.After(now) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(l.window)}
		return Result{Allowed: true, Remaining: max(l.limit-1, 0), RetryAfter: l.window}
	}

	if current.count >= l.limit {
		return Result{Allowed: false, Remaining: 0, RetryAfter: max(current.resetAt.Sub(now), 0)}
	}

	current.count++
	return Result{
		Allowed:    true,
		Remaining:  max(l.limit-current.count, 0),
		RetryAfter: max(current.resetAt.Sub(now), 0),
	}
}

// Sweep drops buckets whose window has elapsed and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if !b.resetAt.After(now) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (l *MemoryLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}
