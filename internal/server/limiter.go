package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per user.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[int64]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a per-user limiter allowing eventsPerSecond with burst.
func NewLimiter(eventsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[int64]*rate.Limiter),
		rate:     rate.Limit(eventsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether userID may send another event now.
func (l *Limiter) Allow(userID int64) bool {
	return l.get(userID).Allow()
}

func (l *Limiter) get(userID int64) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[userID]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[userID]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.rate, l.burst)
	l.limiters[userID] = lim
	return lim
}

// Prune drops the buckets that have refilled to burst. A full bucket is
// indistinguishable from a new one, so only users still paying off earlier
// events are kept, including ones that have disconnected.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, lim := range l.limiters {
		if lim.Tokens() >= float64(l.burst) {
			delete(l.limiters, id)
		}
	}
}

// Len returns the number of tracked users.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
