// Package clock provides the wall-clock source used for cooldowns and effect expiry.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in epoch seconds.
type Clock interface {
	Now() int64
}

// System reads the host clock.
type System struct{}

// Now returns time.Now() as epoch seconds.
func (System) Now() int64 {
	return time.Now().Unix()
}

// Fake is a manually driven clock for tests.
type Fake struct {
	mu  sync.Mutex
	now int64
}

// NewFake creates a Fake clock starting at now.
func NewFake(now int64) *Fake {
	return &Fake{now: now}
}

// Now returns the fake time.
func (f *Fake) Now() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d (truncated to seconds).
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += int64(d / time.Second)
}

// Set jumps to an absolute epoch second.
func (f *Fake) Set(now int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Remaining returns the whole seconds left until expiresAt, or 0 when expired.
func Remaining(c Clock, expiresAt int64) int64 {
	if left := expiresAt - c.Now(); left > 0 {
		return left
	}
	return 0
}
