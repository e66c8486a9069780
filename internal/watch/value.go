// Package watch provides an edge-triggered latest-value cell.
//
// A Value holds at most one current item. Writers replace it with Set;
// readers take the current item with Get or block for the next replacement
// with Wait. Wakeups carry no history: a waiter observes only that the value
// changed since it started waiting, and intermediate values may be skipped.
// This is the building block behind the schedule store, the feed cache, and
// the broadcast hub's transmission slot.
package watch

import (
	"context"
	"sync"
)

// Value is a single-slot container with change notification.
// The zero value is not usable; create with NewValue.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	set     bool
	changed chan struct{}
}

// NewValue returns an empty Value.
func NewValue[T any]() *Value[T] {
	return &Value[T]{changed: make(chan struct{})}
}

// Set stores v as the current value and wakes every pending waiter.
func (w *Value[T]) Set(v T) {
	w.mu.Lock()
	w.current = v
	w.set = true
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}

// Get returns the current value and whether one has ever been set.
func (w *Value[T]) Get() (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current, w.set
}

// Changed returns a channel that is closed by the next Set.
// Take the channel first, then read whatever state the decision depends on;
// selecting on the channel afterwards cannot miss a Set that happened in
// between.
func (w *Value[T]) Changed() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changed
}

// Wait blocks until a Set that happens after the call, or until ctx is done.
func (w *Value[T]) Wait(ctx context.Context) error {
	ch := w.Changed()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitSet blocks until the value has been set at least once and returns it.
// Returns immediately when a value is already present.
func (w *Value[T]) AwaitSet(ctx context.Context) (T, error) {
	for {
		ch := w.Changed()
		if v, ok := w.Get(); ok {
			return v, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
