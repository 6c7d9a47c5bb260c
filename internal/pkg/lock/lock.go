// Package lock provides in-process per-player locking. It front-runs the
// database row locks so concurrent commands from the same player queue up
// instead of fighting over the same rows.
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrLockTimeout means a player stayed busy longer than the caller was willing to wait.
var ErrLockTimeout = errors.New("player is busy")

// Key identifies one player inside one group.
type Key struct {
	ChatID int64
	UserID int64
}

func (k Key) less(o Key) bool {
	if k.ChatID != o.ChatID {
		return k.ChatID < o.ChatID
	}
	return k.UserID < o.UserID
}

// keyMutex is a channel-based mutex so waiting can be abandoned on timeout.
type keyMutex struct {
	ch   chan struct{}
	refs int
}

// PlayerLock hands out per-key mutexes and drops them once nobody holds or waits on them.
type PlayerLock struct {
	mu    sync.Mutex
	locks map[Key]*keyMutex
}

// New creates a new PlayerLock instance.
func New() *PlayerLock {
	return &PlayerLock{locks: make(map[Key]*keyMutex)}
}

func (pl *PlayerLock) acquireRef(k Key) *keyMutex {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	m, ok := pl.locks[k]
	if !ok {
		m = &keyMutex{ch: make(chan struct{}, 1)}
		pl.locks[k] = m
	}
	m.refs++
	return m
}

func (pl *PlayerLock) releaseRef(k Key) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	m, ok := pl.locks[k]
	if !ok {
		return
	}
	m.refs--
	if m.refs == 0 {
		delete(pl.locks, k)
	}
}

func (pl *PlayerLock) lockOne(ctx context.Context, k Key) error {
	m := pl.acquireRef(k)
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		pl.releaseRef(k)
		return ErrLockTimeout
	}
}

func (pl *PlayerLock) unlockOne(k Key) {
	pl.mu.Lock()
	m, ok := pl.locks[k]
	pl.mu.Unlock()
	if !ok {
		return
	}
	<-m.ch
	pl.releaseRef(k)
}

// Lock acquires every key in a global order (chat, then user) so two callers
// locking the same pair in opposite order cannot deadlock. Duplicate keys are
// collapsed. The returned func releases all of them.
func (pl *PlayerLock) Lock(ctx context.Context, timeout time.Duration, keys ...Key) (func(), error) {
	ordered := normalize(keys)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	held := make([]Key, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			pl.unlockOne(held[i])
		}
	}
	for _, k := range ordered {
		if err := pl.lockOne(ctx, k); err != nil {
			release()
			return nil, err
		}
		held = append(held, k)
	}
	return release, nil
}

// WithLock executes fn while holding the locks for keys.
func (pl *PlayerLock) WithLock(ctx context.Context, timeout time.Duration, keys []Key, fn func() error) error {
	unlock, err := pl.Lock(ctx, timeout, keys...)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// IsLocked checks if a key is currently held. Point-in-time only.
func (pl *PlayerLock) IsLocked(k Key) bool {
	pl.mu.Lock()
	m, ok := pl.locks[k]
	pl.mu.Unlock()
	return ok && len(m.ch) == 1
}

// Size returns the number of keys currently tracked.
func (pl *PlayerLock) Size() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.locks)
}

func normalize(keys []Key) []Key {
	out := make([]Key, 0, len(keys))
	seen := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
