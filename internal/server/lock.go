package server

import (
	"context"
	"sync"
)

// SessionLock is the admission gate for the interaction surface. At most one
// connection holds it at a time; everyone else queues behind Acquire.
type SessionLock struct {
	sem chan struct{}
}

// NewSessionLock creates an unheld session lock.
func NewSessionLock() *SessionLock {
	return &SessionLock{
		sem: make(chan struct{}, 1),
	}
}

// TryAcquire takes the lock without blocking. It returns the guard and true
// when the lock was free, or nil and false when another session holds it.
func (l *SessionLock) TryAcquire() (*SessionGuard, bool) {
	select {
	case l.sem <- struct{}{}:
		return &SessionGuard{lock: l}, true
	default:
		return nil, false
	}
}

// Acquire blocks until the lock is free or the context is cancelled.
func (l *SessionLock) Acquire(ctx context.Context) (*SessionGuard, error) {
	select {
	case l.sem <- struct{}{}:
		return &SessionGuard{lock: l}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SessionGuard represents ownership of the session lock. Releasing more than
// once is safe; only the first call frees the lock.
type SessionGuard struct {
	lock *SessionLock
	once sync.Once
}

// Release frees the lock so the next waiting connection can be admitted.
func (g *SessionGuard) Release() {
	g.once.Do(func() {
		<-g.lock.sem
	})
}
