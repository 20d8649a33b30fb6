// Package fifomutex provides a context-aware mutex with strict FIFO fairness.
//
// Unlike sync.Mutex, which makes no ordering guarantees, releasing this mutex
// hands ownership directly to the waiter that has been queued the longest
// before control returns to the releaser. A waiter that arrived first is
// guaranteed to run before one that arrived later, regardless of how many
// subsequent Lock calls race in.
package fifomutex

import (
	"context"
	"sync"
)

type waiter struct {
	ready chan struct{}
}

// Mutex is a FIFO-fair mutual exclusion lock. The zero value is unlocked and
// ready for use. A Mutex must not be copied after first use.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []*waiter
}

// Lock acquires the mutex, blocking until it is available or ctx is done.
// Waiters are served in strict arrival order.
func (m *Mutex) Lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if !m.locked && len(m.waiters) == 0 {
		m.locked = true
		m.mu.Unlock()
		return nil
	}
	w := &waiter{ready: make(chan struct{})}
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		select {
		case <-w.ready:
			// The lock was handed to us while we were cancelling; pass it
			// straight to the next waiter so the FIFO chain is unbroken.
			m.handoffLocked()
		default:
			m.removeLocked(w)
		}
		m.mu.Unlock()
		return ctx.Err()
	}
}

// Unlock releases the mutex. If waiters are queued, ownership transfers to
// the head of the queue before Unlock returns.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		panic("fifomutex: unlock of unlocked mutex")
	}
	m.handoffLocked()
}

// WithLock runs fn while holding the mutex, releasing it on every exit path.
func (m *Mutex) WithLock(ctx context.Context, fn func() error) error {
	if err := m.Lock(ctx); err != nil {
		return err
	}
	defer m.Unlock()
	return fn()
}

// handoffLocked transfers ownership to the oldest waiter, or marks the mutex
// unlocked when the queue is empty. Caller must hold m.mu.
func (m *Mutex) handoffLocked() {
	if len(m.waiters) > 0 {
		next := m.waiters[0]
		m.waiters = m.waiters[1:]
		close(next.ready)
		return
	}
	m.locked = false
}

// removeLocked drops a cancelled waiter from the queue. Caller must hold m.mu.
func (m *Mutex) removeLocked(w *waiter) {
	for i, cand := range m.waiters {
		if cand == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}
