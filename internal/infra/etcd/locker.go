package etcd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobboard/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

const (
	LockPrefix     = "/jobboard/locks/"
	LockSessionTTL = 10 // seconds
)

type etcdLock struct {
	mutex   *concurrency.Mutex
	session *concurrency.Session
	name    string
}

func (l *etcdLock) Unlock(ctx context.Context) error {
	// Closing the session revokes the lease even if Unlock fails.
	defer l.session.Close()

	if err := l.mutex.Unlock(ctx); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.name, err)
	}
	return nil
}

type etcdLocker struct {
	client *clientv3.Client
	wait   time.Duration
}

// NewLocker returns a domain.Locker whose Lock gives up after wait.
func NewLocker(client *clientv3.Client, wait time.Duration) domain.Locker {
	return &etcdLocker{client: client, wait: wait}
}

func (l *etcdLocker) Lock(ctx context.Context, name string) (domain.Lock, error) {
	session, err := concurrency.NewSession(l.client, concurrency.WithTTL(LockSessionTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd session for lock %s: %w", name, err)
	}
	mutex := concurrency.NewMutex(session, LockPrefix+name)

	tryCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	if err := mutex.TryLock(tryCtx); err != nil {
		_ = session.Close()
		if errors.Is(err, concurrency.ErrLocked) || errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrLockNotAcquired
		}
		return nil, fmt.Errorf("failed to acquire etcd lock %s: %w", name, err)
	}
	return &etcdLock{mutex: mutex, session: session, name: name}, nil
}
