package lock

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	kl := NewKeyLock()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("session:1:2:3")
			counter++
			kl.Unlock("session:1:2:3")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.False(t, kl.IsLocked("session:1:2:3"))
}

func TestKeyLock_DifferentKeysIndependent(t *testing.T) {
	kl := NewKeyLock()

	kl.Lock("player:1:10")
	defer kl.Unlock("player:1:10")

	// An unrelated key is not blocked.
	acquired := kl.TryLock("player:1:20")
	require.True(t, acquired)
	kl.Unlock("player:1:20")
}

func TestKeyLock_TryLockHeldKey(t *testing.T) {
	kl := NewKeyLock()

	kl.Lock("k")
	assert.False(t, kl.TryLock("k"))
	kl.Unlock("k")
	assert.True(t, kl.TryLock("k"))
	kl.Unlock("k")
}

func TestKeyLock_LockWithTimeout(t *testing.T) {
	kl := NewKeyLock()

	kl.Lock("k")
	acquired := kl.LockWithTimeout(context.Background(), "k", 50*time.Millisecond)
	assert.False(t, acquired)
	kl.Unlock("k")

	acquired = kl.LockWithTimeout(context.Background(), "k", 50*time.Millisecond)
	assert.True(t, acquired)
	kl.Unlock("k")
}

func TestKeyLock_WithLock(t *testing.T) {
	kl := NewKeyLock()

	ran := false
	err := kl.WithLock("k", func() error {
		ran = true
		assert.True(t, kl.IsLocked("k"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, kl.IsLocked("k"))
}

// TestKeyLock_LockPairNoDeadlock locks many random pairs concurrently in
// both orders; stable internal ordering must prevent deadlock.
func TestKeyLock_LockPairNoDeadlock(t *testing.T) {
	kl := NewKeyLock()
	keys := []string{"player:1:1", "player:1:2", "player:1:3", "player:1:4"}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := keys[i%len(keys)]
			b := keys[(i/2)%len(keys)]
			kl.LockPair(a, b)
			kl.UnlockPair(a, b)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock: pair locking did not finish")
	}
}

func TestKeyLock_LockPairSameKey(t *testing.T) {
	kl := NewKeyLock()

	// Locking a key with itself must not self-deadlock.
	kl.LockPair("k", "k")
	assert.True(t, kl.IsLocked("k"))
	kl.UnlockPair("k", "k")
	assert.False(t, kl.IsLocked("k"))
}

// TestConcurrentCounterProperty checks that read-modify-write sequences
// under the same key are equivalent to sequential execution.
func TestConcurrentCounterProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")
		deltas := make([]int64, numOps)
		var expected int64
		for i := range deltas {
			deltas[i] = rapid.Int64Range(-500, 500).Draw(t, fmt.Sprintf("delta%d", i))
			expected += deltas[i]
		}
		key := fmt.Sprintf("player:1:%d", rapid.Int64Range(1, 1_000_000).Draw(t, "user"))

		kl := NewKeyLock()
		var total int64

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, delta := range deltas {
			go func(delta int64) {
				defer wg.Done()
				kl.Lock(key)
				defer kl.Unlock(key)
				current := total
				total = current + delta
			}(delta)
		}
		wg.Wait()

		if total != expected {
			t.Fatalf("final total %d, want %d", total, expected)
		}
	})
}
