// Package yaratelimit implements a fixed-window rate limiter keyed by user id
// and command group.
//
// Each (user, group) pair keeps the number of hits and the time of the first
// hit in the active window. A hit after the window elapsed opens a new one.
// Expired windows are pruned lazily once the table grows past PruneThreshold.
package yaratelimit

import (
	"sync"
	"time"
)

// PruneThreshold is the table size above which Allow sweeps expired windows.
const PruneThreshold = 1024

type key struct {
	userID int64
	group  string
}

type window struct {
	hits  int
	first time.Time
}

// Limiter allows at most Limit hits per Window for every (user, group).
// Safe for concurrent use.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[key]window
}

// New creates a Limiter. A limit below one is treated as one.
//
// Example usage:
//
//	limiter := yaratelimit.New(5, 10*time.Second)
//	if !limiter.Allow(userID, "roll") {
//	    return nil
//	}
func New(limit int, windowSize time.Duration) *Limiter {
	return &Limiter{
		limit:   max(limit, 1),
		window:  windowSize,
		now:     time.Now,
		windows: make(map[key]window),
	}
}

// Allow records a hit and reports whether it fits into the active window.
// Rejected hits are not counted.
func (l *Limiter) Allow(userID int64, group string) bool {
	now := l.now()
	k := key{userID: userID, group: group}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.windows) > PruneThreshold {
		l.prune(now)
	}

	current, ok := l.windows[k]
	if !ok || now.Sub(current.first) >= l.window {
		l.windows[k] = window{hits: 1, first: now}

		return true
	}

	if current.hits >= l.limit {
		return false
	}

	current.hits++
	l.windows[k] = current

	return true
}

// Remaining returns how many hits are left for (user, group) in the active
// window.
func (l *Limiter) Remaining(userID int64, group string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.windows[key{userID: userID, group: group}]
	if !ok || l.now().Sub(current.first) >= l.window {
		return l.limit
	}

	return l.limit - current.hits
}

// Reset forgets the window of (user, group).
func (l *Limiter) Reset(userID int64, group string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key{userID: userID, group: group})
}

// Len returns the number of tracked windows, expired ones included.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.windows)
}

func (l *Limiter) prune(now time.Time) {
	for k, current := range l.windows {
		if now.Sub(current.first) >= l.window {
			delete(l.windows, k)
		}
	}
}
