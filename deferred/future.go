package deferred

import (
	"context"
	"sync"

	"github.com/kbukum/powermap/errors"
)

// Future is a value that becomes available exactly once.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture creates an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve settles the future. Only the first call has an effect; it reports
// whether this call settled the future.
func (f *Future[T]) Resolve(v T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
		settled = true
	})
	return settled
}

// Done returns a channel closed once the future is settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has been resolved.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future is settled.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Await blocks until the future is settled or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Cancelled(ctx.Err())
	}
}

// Go runs fn in a new goroutine and returns a future for its result.
// A panic inside fn settles the future with a PANIC error.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.Resolve(zero, errors.Panicked(r))
			}
		}()
		f.Resolve(fn())
	}()
	return f
}
