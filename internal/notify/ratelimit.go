// Package notify gates and delivers support-team alerts. The rate
// limiter caps notifications per user over a sliding window; the mailer
// wraps the external delivery capability with pacing and a bounded
// timeout.
package notify

import (
	"sync"
	"time"
)

// bucket is one user's notification timestamps within the window.
type bucket struct {
	mu     sync.Mutex
	stamps []time.Time
}

// RateLimiter caps notifications per user with a sliding window. State
// is in memory only: a process restart resets all limits.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.RWMutex
	cap     int
	window  time.Duration
	now     func() time.Time

	statsMu sync.Mutex
	allowed int
	denied  int
}

// NewRateLimiter creates a limiter permitting cap notifications per user
// per window.
func NewRateLimiter(cap int, window time.Duration) *RateLimiter {
	if cap <= 0 {
		cap = 3
	}
	if window <= 0 {
		window = time.Hour
	}

	return &RateLimiter{
		buckets: make(map[string]*bucket),
		cap:     cap,
		window:  window,
		now:     time.Now,
	}
}

// TryConsume prunes the user's bucket of timestamps older than the
// window, then grants a permit if capacity remains. A denial mutates
// nothing beyond the pruning. Check-and-mutate is atomic per user;
// different users never contend.
func (l *RateLimiter) TryConsume(userID string) bool {
	b := l.getBucket(userID)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := b.stamps[:0]
	for _, ts := range b.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.stamps = kept

	if len(b.stamps) >= l.cap {
		l.count(false)
		return false
	}

	b.stamps = append(b.stamps, now)
	l.count(true)
	return true
}

// Remaining reports how many permits the user has left in the current
// window, without consuming one.
func (l *RateLimiter) Remaining(userID string) int {
	b := l.getBucket(userID)

	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	live := 0
	for _, ts := range b.stamps {
		if ts.After(cutoff) {
			live++
		}
	}

	if live >= l.cap {
		return 0
	}
	return l.cap - live
}

// Stats returns the running allowed/denied counts.
func (l *RateLimiter) Stats() (allowed, denied int) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.allowed, l.denied
}

// getBucket returns the bucket for userID, creating it if needed.
func (l *RateLimiter) getBucket(userID string) *bucket {
	l.mu.RLock()
	b, exists := l.buckets[userID]
	l.mu.RUnlock()

	if exists {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if b, exists := l.buckets[userID]; exists {
		return b
	}

	b = &bucket{}
	l.buckets[userID] = b
	return b
}

func (l *RateLimiter) count(allowed bool) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	if allowed {
		l.allowed++
	} else {
		l.denied++
	}
}
