// Package ratelimit implements an in-memory sliding-window rate
// limiter. Every read path of the API is gated through one shared
// Limiter; state is process-local and not persisted.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultQuota is the number of admissions allowed per key
	// within the window.
	DefaultQuota = 100
	// DefaultWindow is the trailing interval admissions are
	// counted over.
	DefaultWindow = time.Minute
)

// Limiter tracks admission timestamps per key over a rolling
// window. Unlike a fixed-bucket counter, a burst straddling a
// window boundary cannot double the effective quota.
type Limiter struct {
	quota  int
	window time.Duration

	mu      sync.Mutex
	ledgers map[string][]time.Time
}

// New creates a Limiter admitting at most quota calls per key
// within the trailing window.
func New(quota int, window time.Duration) *Limiter {
	return &Limiter{
		quota:   quota,
		window:  window,
		ledgers: make(map[string][]time.Time),
	}
}

// Key composes the conventional "<subject>:<operation>" limiter key.
func Key(subject, operation string) string {
	return fmt.Sprintf("%s:%s", subject, operation)
}

// Admit reports whether a call for key may proceed at instant now.
// Expired entries are pruned lazily; a rejected call is not
// recorded and does not extend the window.
func (l *Limiter) Admit(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	valid := l.prune(l.ledgers[key], now)
	if len(valid) >= l.quota {
		l.ledgers[key] = valid
		return false
	}

	l.ledgers[key] = append(valid, now)
	return true
}

// prune returns the entries of ledger still inside the window at
// instant now. Ledger order is non-decreasing, so the first kept
// index bounds the rest.
func (l *Limiter) prune(ledger []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(ledger) && !ledger[i].After(cutoff) {
		i++
	}
	return ledger[i:]
}

// sweep drops keys whose entire ledger has expired so that memory
// stays bounded by active keys. Runs under the caller's lock.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.window)
	for key, ledger := range l.ledgers {
		if len(ledger) == 0 || !ledger[len(ledger)-1].After(cutoff) {
			delete(l.ledgers, key)
		}
	}
}

// Len reports the number of keys currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ledgers)
}
