package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the context ends before the lock is free.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes work per key. Acquire waits until the lock is free or ctx
// is done; ttl bounds how long a crashed holder can keep a distributed lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}
