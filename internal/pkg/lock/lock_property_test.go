package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty: concurrent read-modify-write on one
// player's balance under the lock matches sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		key := Key{
			ChatID: rapid.Int64Range(-1000, -1).Draw(t, "chat"),
			UserID: rapid.Int64Range(1, 1000000).Draw(t, "user"),
		}

		pl := New()
		balance := initial
		expected := initial
		for _, a := range amounts {
			expected += a
		}

		var wg sync.WaitGroup
		for _, a := range amounts {
			wg.Add(1)
			go func(amount int64) {
				defer wg.Done()
				_ = pl.WithLock(context.Background(), 0, []Key{key}, func() error {
					balance += amount
					return nil
				})
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d", expected, balance)
		}
		if pl.Size() != 0 {
			t.Fatalf("lock table not drained: %d keys left", pl.Size())
		}
	})
}

// TestPairLockingNoDeadlockProperty: attacker/target pairs locked in either
// order always make progress, and transfers between the pair conserve the total.
func TestPairLockingNoDeadlockProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := Key{ChatID: 1, UserID: rapid.Int64Range(1, 100).Draw(t, "a")}
		b := Key{ChatID: 1, UserID: rapid.Int64Range(101, 200).Draw(t, "b")}
		n := rapid.IntRange(2, 30).Draw(t, "n")

		pl := New()
		balances := map[Key]int64{a: 1000, b: 1000}

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			from, to := a, b
			if i%2 == 1 {
				from, to = b, a
			}
			wg.Add(1)
			go func(from, to Key) {
				defer wg.Done()
				err := pl.WithLock(context.Background(), 5*time.Second, []Key{from, to}, func() error {
					balances[from] -= 7
					balances[to] += 7
					return nil
				})
				if err != nil {
					panic(err)
				}
			}(from, to)
		}
		wg.Wait()

		if balances[a]+balances[b] != 2000 {
			t.Fatalf("total not conserved: %d", balances[a]+balances[b])
		}
	})
}

// TestNormalizeOrderProperty: normalize is order-insensitive and drops duplicates.
func TestNormalizeOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gen := rapid.Custom(func(t *rapid.T) Key {
			return Key{
				ChatID: rapid.Int64Range(1, 3).Draw(t, "chat"),
				UserID: rapid.Int64Range(1, 5).Draw(t, "user"),
			}
		})
		keys := rapid.SliceOfN(gen, 0, 10).Draw(t, "keys")
		reversed := make([]Key, len(keys))
		for i, k := range keys {
			reversed[len(keys)-1-i] = k
		}

		got := normalize(keys)
		if len(got) != len(normalize(reversed)) {
			t.Fatalf("normalize not order-insensitive")
		}
		for i, k := range normalize(reversed) {
			if got[i] != k {
				t.Fatalf("normalize not order-insensitive at %d", i)
			}
		}
		for i := 1; i < len(got); i++ {
			if !got[i-1].less(got[i]) {
				t.Fatalf("not strictly ordered at %d: %v %v", i, got[i-1], got[i])
			}
		}
	})
}

func TestLock_Timeout(t *testing.T) {
	pl := New()
	k := Key{ChatID: 1, UserID: 2}

	unlock, err := pl.Lock(context.Background(), 0, k)
	require.NoError(t, err)
	assert.True(t, pl.IsLocked(k))

	_, err = pl.Lock(context.Background(), 20*time.Millisecond, k)
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, pl.IsLocked(k))
	assert.Equal(t, 0, pl.Size())

	unlock, err = pl.Lock(context.Background(), 20*time.Millisecond, k, k)
	require.NoError(t, err)
	unlock()
}

func TestLock_PartialAcquireReleases(t *testing.T) {
	pl := New()
	a := Key{ChatID: 1, UserID: 1}
	b := Key{ChatID: 1, UserID: 2}

	unlockB, err := pl.Lock(context.Background(), 0, b)
	require.NoError(t, err)

	_, err = pl.Lock(context.Background(), 20*time.Millisecond, a, b)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, pl.IsLocked(a), "a must be released after b timed out")

	unlockB()
}
