package domain

import (
	"context"
	"errors"
)

// ErrLockNotAcquired is returned when another process holds the lock.
var ErrLockNotAcquired = errors.New("lock not acquired")

// Lock is a held distributed lock.
type Lock interface {
	Unlock(ctx context.Context) error
}

// Locker serializes work across replicas, such as schema migrations and
// maintenance runs during a leadership handover. Lock does not wait for a
// held lock; it fails with ErrLockNotAcquired.
type Locker interface {
	Lock(ctx context.Context, name string) (Lock, error)
}
