package deferred

import (
	"context"

	"github.com/kbukum/powermap/errors"
)

// Maybe holds either an immediate result or a pending future.
// The zero value is an immediate zero value with no error.
type Maybe[T any] struct {
	val T
	err error
	fut *Future[T]
}

// Value returns an immediate successful result.
func Value[T any](v T) Maybe[T] { return Maybe[T]{val: v} }

// Fail returns an immediate failure.
func Fail[T any](err error) Maybe[T] { return Maybe[T]{err: err} }

// Settle returns an immediate result built from a (value, error) pair.
func Settle[T any](v T, err error) Maybe[T] { return Maybe[T]{val: v, err: err} }

// Pending wraps a future. A nil future yields a CONFIGURATION failure.
func Pending[T any](f *Future[T]) Maybe[T] {
	if f == nil {
		return Fail[T](errors.Configuration("pending value without a future"))
	}
	return Maybe[T]{fut: f}
}

// Async runs fn in a goroutine and returns its deferred result.
func Async[T any](fn func() (T, error)) Maybe[T] {
	return Pending(Go(fn))
}

// IsDeferred reports whether the result is (or was) produced asynchronously.
// A deferred Maybe stays deferred after its future settles.
func (m Maybe[T]) IsDeferred() bool { return m.fut != nil }

// Future returns the underlying future, or nil for an immediate result.
func (m Maybe[T]) Future() *Future[T] { return m.fut }

// Get returns the result without blocking. For a deferred value that has
// not settled yet it returns a PENDING error.
func (m Maybe[T]) Get() (T, error) {
	if m.fut == nil {
		return m.val, m.err
	}
	if !m.fut.Settled() {
		var zero T
		return zero, errors.NotSettled()
	}
	return m.fut.Wait()
}

// Wait blocks until the result is available.
func (m Maybe[T]) Wait() (T, error) {
	if m.fut == nil {
		return m.val, m.err
	}
	return m.fut.Wait()
}

// Await blocks until the result is available or ctx is done. Immediate
// results are returned even if ctx is already cancelled.
func (m Maybe[T]) Await(ctx context.Context) (T, error) {
	if m.fut == nil {
		return m.val, m.err
	}
	return m.fut.Await(ctx)
}

// Then chains fn onto a successful result. It runs synchronously when m is
// immediate and in a goroutine otherwise.
func Then[T, U any](m Maybe[T], fn func(T) Maybe[U]) Maybe[U] {
	if !m.IsDeferred() {
		if m.err != nil {
			return Fail[U](m.err)
		}
		return call(fn, m.val)
	}
	return Async(func() (U, error) {
		v, err := m.fut.Wait()
		if err != nil {
			var zero U
			return zero, err
		}
		return call(fn, v).Wait()
	})
}

// Map transforms a successful result with a plain function.
func Map[T, U any](m Maybe[T], fn func(T) (U, error)) Maybe[U] {
	return Then(m, func(v T) Maybe[U] { return Settle(fn(v)) })
}

// Catch lets fn replace a failure. Successful results pass through.
func Catch[T any](m Maybe[T], fn func(error) Maybe[T]) Maybe[T] {
	if !m.IsDeferred() {
		if m.err == nil {
			return m
		}
		return call(fn, m.err)
	}
	return Async(func() (T, error) {
		v, err := m.fut.Wait()
		if err == nil {
			return v, nil
		}
		return call(fn, err).Wait()
	})
}

// OnSettled calls fn with the result once it is available and returns m
// unchanged. For immediate results fn runs before OnSettled returns.
func OnSettled[T any](m Maybe[T], fn func(T, error)) Maybe[T] {
	if !m.IsDeferred() {
		fn(m.val, m.err)
		return m
	}
	go func() {
		fn(m.fut.Wait())
	}()
	return m
}

func call[A, R any](fn func(A) Maybe[R], arg A) (m Maybe[R]) {
	defer func() {
		if r := recover(); r != nil {
			m = Fail[R](errors.Panicked(r))
		}
	}()
	return fn(arg)
}
