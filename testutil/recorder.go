package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/pull"
)

// Recorder is a puller over a fixed slice that records how it is used:
// how many times it was pulled and whether it was closed or aborted.
// It can be told to defer selected pulls or to fail on a given pull.
type Recorder[T any] struct {
	items []T

	// DeferOn reports whether the n-th pull (1-based) is deferred.
	// Nil means every pull is immediate.
	DeferOn func(n int) bool
	// Delay is how long a deferred pull waits before resolving.
	Delay time.Duration
	// FailOn is the 1-based pull number that fails with Err. Zero disables it.
	FailOn int
	// Err is the failure returned on pull FailOn.
	Err error

	pulls   atomic.Int32
	closed  atomic.Int32
	aborted atomic.Int32

	mu     sync.Mutex
	pos    int
	reason error
}

// NewRecorder returns an immediate recorder over items.
func NewRecorder[T any](items ...T) *Recorder[T] {
	return &Recorder[T]{items: items}
}

// AsyncRecorder returns a recorder whose every pull is deferred.
func AsyncRecorder[T any](items ...T) *Recorder[T] {
	return &Recorder[T]{items: items, DeferOn: Always}
}

// Always defers every pull.
func Always(int) bool { return true }

// Only returns a DeferOn predicate that defers exactly the listed pulls.
func Only(calls ...int) func(int) bool {
	set := make(map[int]bool, len(calls))
	for _, c := range calls {
		set[c] = true
	}
	return func(n int) bool { return set[n] }
}

func (r *Recorder[T]) Next(ctx context.Context) deferred.Maybe[pull.Result[T]] {
	n := int(r.pulls.Add(1))
	res, err := r.step(n)
	if r.DeferOn == nil || !r.DeferOn(n) {
		return deferred.Settle(res, err)
	}
	delay := r.Delay
	return deferred.Async(func() (pull.Result[T], error) {
		if delay > 0 {
			time.Sleep(delay)
		}
		return res, err
	})
}

func (r *Recorder[T]) step(n int) (pull.Result[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailOn > 0 && n == r.FailOn {
		return pull.Result[T]{}, r.Err
	}
	if r.pos >= len(r.items) {
		return pull.Done[T](), nil
	}
	v := r.items[r.pos]
	r.pos++
	return pull.Value(v), nil
}

func (r *Recorder[T]) Close(context.Context) error {
	r.closed.Add(1)
	return nil
}

func (r *Recorder[T]) Abort(_ context.Context, reason error) error {
	r.aborted.Add(1)
	r.mu.Lock()
	r.reason = reason
	r.mu.Unlock()
	return nil
}

// Pulls returns how many times Next was called.
func (r *Recorder[T]) Pulls() int { return int(r.pulls.Load()) }

// Closed returns how many times Close was called.
func (r *Recorder[T]) Closed() int { return int(r.closed.Load()) }

// Aborted returns how many times Abort was called.
func (r *Recorder[T]) Aborted() int { return int(r.aborted.Load()) }

// AbortReason returns the reason passed to the last Abort call.
func (r *Recorder[T]) AbortReason() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}
