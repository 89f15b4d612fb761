// Package primitives provides the small set of platform abstractions
// spec.md §6 names as assumed collaborators: a counting semaphore with
// timed wait, a monotonic timer, and (on Linux) named semaphores and
// named shared memory for the SHM transport. Mutex and RWMutex need no
// wrapper beyond the standard library's sync package.
package primitives

import (
	"context"
	"time"
)

// Semaphore is an in-process counting semaphore with a timed wait,
// backed by a buffered channel. It plays the role of the source's
// urpc-semaphore.h for every in-process use (the global SHM access
// semaphore and the per-slot start/stop/used semaphores use the
// OS-level NamedSemaphore instead; see named_linux.go).
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a semaphore with the given initial value and
// maximum value. A binary semaphore that starts locked (value 0) is
// created with NewSemaphore(0, 1).
func NewSemaphore(value, max int) *Semaphore {
	if max < 1 {
		max = 1
	}
	s := &Semaphore{slots: make(chan struct{}, max)}
	for i := 0; i < value; i++ {
		s.slots <- struct{}{}
	}
	return s
}

// Wait blocks until a unit is available.
func (s *Semaphore) Wait() {
	<-s.slots
}

// WaitTimeout blocks until a unit is available or d elapses, returning
// false on timeout. It is the in-process counterpart of
// NamedSemaphore.WaitTimeout, which the SHM transport's 500ms server
// poll uses; the TCP and UDP transports poll with socket deadlines.
func (s *Semaphore) WaitTimeout(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.slots:
		return true
	case <-t.C:
		return false
	}
}

// WaitContext blocks until a unit is available or ctx is done.
func (s *Semaphore) WaitContext(ctx context.Context) error {
	select {
	case <-s.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock attempts to claim a unit without blocking, returning false if
// none is currently available. Used by the SHM client's slot-scanning
// logic to find a claimable slot.
func (s *Semaphore) TryLock() bool {
	select {
	case <-s.slots:
		return true
	default:
		return false
	}
}

// Post releases one unit back to the semaphore.
func (s *Semaphore) Post() {
	select {
	case s.slots <- struct{}{}:
	default:
		// Posting past the maximum value would indicate a logic error
		// in the caller; silently drop rather than block or panic,
		// matching a counting semaphore's saturating-post semantics.
	}
}
