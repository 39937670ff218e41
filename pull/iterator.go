package pull

import (
	"context"

	"github.com/kbukum/powermap/deferred"
)

// Iterator provides blocking sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// FromIterator adapts a blocking iterator. Each pull calls it.Next on the
// caller's goroutine, so results are immediate. After exhaustion or an
// error the puller stays done and the iterator is closed.
func FromIterator[T any](it Iterator[T]) Puller[T] {
	return &iteratorSource[T]{it: it}
}

type iteratorSource[T any] struct {
	it   Iterator[T]
	done bool
}

func (s *iteratorSource[T]) Next(ctx context.Context) deferred.Maybe[Result[T]] {
	if s.done {
		return deferred.Value(Done[T]())
	}
	v, ok, err := s.it.Next(ctx)
	if err != nil || !ok {
		s.done = true
		cerr := s.it.Close()
		if err == nil {
			err = cerr
		}
		return deferred.Settle(Done[T](), err)
	}
	return deferred.Value(Value(v))
}

func (s *iteratorSource[T]) Close(context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.it.Close()
}

// ToIterator exposes p as a blocking iterator. Deferred pulls are awaited
// on the calling goroutine.
func ToIterator[T any](p Puller[T]) Iterator[T] {
	return &pullerIterator[T]{p: p}
}

type pullerIterator[T any] struct {
	p Puller[T]
}

func (it *pullerIterator[T]) Next(ctx context.Context) (T, bool, error) {
	r, err := it.p.Next(ctx).Await(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := r.Get()
	return v, ok, nil
}

func (it *pullerIterator[T]) Close() error {
	Close(context.Background(), it.p)
	return nil
}
