package adapter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter throttles each user with a token bucket of its own.
type Limiter struct {
	mu      sync.Mutex
	entries map[int64]*limiterEntry
	every   rate.Limit
	burst   int
	now     func() time.Time
}

// NewLimiter allows perMinute events per user with the given burst.
func NewLimiter(perMinute, burst int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		entries: make(map[int64]*limiterEntry),
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether userID may act now and spends a token if so.
func (l *Limiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.entries[userID] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// Prune drops buckets idle long enough to be full again.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-limiterIdle)
	n := 0
	for id, e := range l.entries {
		if e.seen.Before(cutoff) {
			delete(l.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked users.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
