// Package lock provides named advisory locks used when a store lacks an
// atomic counter: tag version bumps serialize behind a per-tag lock so the
// read-modify-write never loses an increment.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock could not be acquired within the
// caller's wait budget.
var ErrTimeout = errors.New("lock: wait timed out")

// Locker hands out named advisory locks. Acquire blocks up to wait for the
// lock and returns a release func on success. A wait <= 0 means a single
// non-blocking attempt. Implementations must be safe for concurrent use.
type Locker interface {
	Acquire(ctx context.Context, name string, wait time.Duration) (release func(), err error)
}

// Local serializes within a single process. Each name maps to a one-slot
// semaphore; slots are never removed, which is fine for the bounded set of
// tag names a process touches.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

var _ Locker = (*Local)(nil)

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(name string) chan struct{} {
	l.mu.Lock()
	ch, ok := l.slots[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[name] = ch
	}
	l.mu.Unlock()
	return ch
}

func (l *Local) Acquire(ctx context.Context, name string, wait time.Duration) (func(), error) {
	ch := l.slot(name)
	release := func() { <-ch }

	if wait <= 0 {
		select {
		case ch <- struct{}{}:
			return release, nil
		default:
			return nil, ErrTimeout
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return release, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
