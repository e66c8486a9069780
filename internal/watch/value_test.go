package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_GetBeforeSet(t *testing.T) {
	w := NewValue[int]()

	v, ok := w.Get()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestValue_SetThenGet(t *testing.T) {
	w := NewValue[string]()

	w.Set("first")
	v, ok := w.Get()
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	w.Set("second")
	v, ok = w.Get()
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestValue_SetWakesWaiter(t *testing.T) {
	w := NewValue[int]()

	done := make(chan error, 1)
	go func() {
		done <- w.Wait(context.Background())
	}()

	// Give the waiter a moment to block before publishing.
	time.Sleep(10 * time.Millisecond)
	w.Set(42)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Set")
	}

	v, ok := w.Get()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestValue_SetWakesAllWaiters(t *testing.T) {
	w := NewValue[int]()

	const waiters = 8
	var wg sync.WaitGroup
	wg.Add(waiters)
	for range waiters {
		go func() {
			defer wg.Done()
			_ = w.Wait(context.Background())
		}()
	}

	time.Sleep(10 * time.Millisecond)
	w.Set(1)

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("not all waiters were woken")
	}
}

func TestValue_WaitIsEdgeTriggered(t *testing.T) {
	w := NewValue[int]()
	w.Set(1)

	// A Set before Wait must not satisfy the wait.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValue_ChangedSnapshotOrdering(t *testing.T) {
	w := NewValue[int]()

	// Taking the channel before reading state guarantees a Set in between is
	// still observed by the subsequent select.
	ch := w.Changed()
	w.Set(7)

	select {
	case <-ch:
	default:
		t.Fatal("Set between Changed and select was lost")
	}
}

func TestValue_AwaitSetReturnsExistingValue(t *testing.T) {
	w := NewValue[int]()
	w.Set(9)

	v, err := w.AwaitSet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestValue_AwaitSetBlocksUntilFirstSet(t *testing.T) {
	w := NewValue[string]()

	type result struct {
		v   string
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := w.AwaitSet(context.Background())
		done <- result{v, err}
	}()

	time.Sleep(10 * time.Millisecond)
	w.Set("ready")

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "ready", r.v)
	case <-time.After(time.Second):
		t.Fatal("AwaitSet did not observe the first Set")
	}
}

func TestValue_AwaitSetCancelled(t *testing.T) {
	w := NewValue[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.AwaitSet(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValue_WaitCancelled(t *testing.T) {
	w := NewValue[int]()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Wait(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled wait did not return")
	}
}

func TestValue_ConcurrentSetAndGet(t *testing.T) {
	w := NewValue[int]()

	const goroutines = 50
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(goroutines * 2)

	for i := range goroutines {
		go func(base int) {
			defer wg.Done()
			for j := range iterations {
				w.Set(base*iterations + j)
			}
		}(i)
	}

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				_, _ = w.Get()
				_ = w.Changed()
			}
		}()
	}

	wg.Wait()

	_, ok := w.Get()
	assert.True(t, ok)
}
