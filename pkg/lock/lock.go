package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock could not be obtained within the
// configured retry budget. Callers should surface this as a transient
// condition, never as a scheduling conflict.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker guards a critical section under a named mutual-exclusion key.
// Acquisition is scoped: the lock is released on every exit path of fn,
// including panics and errors.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
