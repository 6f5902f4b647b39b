package optimistic

import "sync"

// Value holds a committed value and at most one pending attempt on top of
// it. Readers see the pending value while a write is in flight; a failed
// write reverts to the last committed value.
type Value[T any] struct {
	mu        sync.RWMutex
	committed T
	pending   *T
}

func New[T any](initial T) *Value[T] {
	return &Value[T]{committed: initial}
}

// Attempt records v as pending and returns the committed value it replaces
func (v *Value[T]) Attempt(next T) T {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.pending = &next
	return v.committed
}

// Commit makes the pending value the committed one. Without a pending value
// it does nothing.
func (v *Value[T]) Commit() T {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pending != nil {
		v.committed = *v.pending
		v.pending = nil
	}
	return v.committed
}

// CommitValue commits a value confirmed by the remote side, which may differ
// from what was attempted.
func (v *Value[T]) CommitValue(confirmed T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.committed = confirmed
	v.pending = nil
}

// Revert drops the pending value and returns the committed one
func (v *Value[T]) Revert() T {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.pending = nil
	return v.committed
}

// Get returns the pending value if there is one, otherwise the committed one
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.pending != nil {
		return *v.pending
	}
	return v.committed
}

// Committed returns the last committed value
func (v *Value[T]) Committed() T {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.committed
}

// Pending reports whether an attempt is in flight
func (v *Value[T]) Pending() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.pending != nil
}
