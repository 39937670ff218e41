package pull

import (
	"context"
	"iter"
	"sync"

	"github.com/kbukum/powermap/deferred"
)

// FromSlice returns a puller over items. Every result is immediate.
func FromSlice[T any](items []T) Puller[T] {
	return &sliceSource[T]{items: items}
}

// FromValue returns a puller yielding v once.
func FromValue[T any](v T) Puller[T] {
	return FromSlice([]T{v})
}

// Empty returns a puller that is done from the start.
func Empty[T any]() Puller[T] {
	return FromSlice[T](nil)
}

type sliceSource[T any] struct {
	items []T
	pos   int
}

func (s *sliceSource[T]) Next(context.Context) deferred.Maybe[Result[T]] {
	if s.pos >= len(s.items) {
		return deferred.Value(Done[T]())
	}
	v := s.items[s.pos]
	s.pos++
	return deferred.Value(Value(v))
}

func (s *sliceSource[T]) Close(context.Context) error {
	s.pos = len(s.items)
	return nil
}

// FromSeq returns a puller over a range-over-func sequence. The sequence is
// started on the first pull and stopped on exhaustion or Close.
func FromSeq[T any](seq iter.Seq[T]) Puller[T] {
	return &seqSource[T]{seq: seq}
}

type seqSource[T any] struct {
	seq  iter.Seq[T]
	next func() (T, bool)
	stop func()
	done bool
}

func (s *seqSource[T]) Next(context.Context) deferred.Maybe[Result[T]] {
	if s.done {
		return deferred.Value(Done[T]())
	}
	if s.next == nil {
		s.next, s.stop = iter.Pull(s.seq)
	}
	v, ok := s.next()
	if !ok {
		s.finish()
		return deferred.Value(Done[T]())
	}
	return deferred.Value(Value(v))
}

func (s *seqSource[T]) Close(context.Context) error {
	s.finish()
	return nil
}

func (s *seqSource[T]) finish() {
	s.done = true
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// Async wraps p so that every pull is deferred. Pulls are forwarded to p
// one at a time, in the order they were requested. Close and Abort queue
// behind the pulls already requested, so p never sees a signal while one
// of its pulls is running.
func Async[T any](p Puller[T]) Puller[T] {
	return &asyncSource[T]{inner: p}
}

type asyncSource[T any] struct {
	inner Puller[T]

	mu   sync.Mutex
	tail <-chan struct{}
}

// enqueue takes the next place in line. It returns the channel to wait on
// and the function that releases the place.
func (a *asyncSource[T]) enqueue() (<-chan struct{}, func()) {
	done := make(chan struct{})
	a.mu.Lock()
	prev := a.tail
	a.tail = done
	a.mu.Unlock()
	return prev, func() { close(done) }
}

func (a *asyncSource[T]) Next(ctx context.Context) deferred.Maybe[Result[T]] {
	prev, release := a.enqueue()
	return deferred.Async(func() (Result[T], error) {
		defer release()
		if prev != nil {
			<-prev
		}
		return a.inner.Next(ctx).Await(ctx)
	})
}

func (a *asyncSource[T]) Close(ctx context.Context) error {
	prev, release := a.enqueue()
	defer release()
	if prev != nil {
		<-prev
	}
	Close(ctx, a.inner)
	return nil
}

func (a *asyncSource[T]) Abort(ctx context.Context, reason error) error {
	prev, release := a.enqueue()
	defer release()
	if prev != nil {
		<-prev
	}
	Abort(ctx, a.inner, reason)
	return nil
}
