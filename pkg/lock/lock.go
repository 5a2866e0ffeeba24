// Package lock provides keyed mutual exclusion used to serialise
// read-check-mutate sequences on a single resource (e.g. one book's stock).
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout is returned when the lock could not be acquired before the
// context was cancelled or its deadline passed.
var ErrLockTimeout = errors.New("lock: acquire timed out")

// Unlock releases a previously acquired lock. Calling it more than once is a no-op.
type Unlock func()

// Locker grants exclusive access per key.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	// Returns ErrLockTimeout when ctx ends first.
	Acquire(ctx context.Context, key string) (Unlock, error)
}

// BookKey is the lock key guarding a book's available-copy counter
func BookKey(bookID string) string {
	return "book:" + bookID
}

// MemberKey is the lock key guarding member deletion
func MemberKey(memberID string) string {
	return "member:" + memberID
}

// AcquireWithin bounds only the wait for the lock by timeout; the returned
// lock stays valid after the wait deadline.
func AcquireWithin(ctx context.Context, l Locker, key string, timeout time.Duration) (Unlock, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return l.Acquire(ctx, key)
}
