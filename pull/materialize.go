package pull

import (
	"context"
	"fmt"
	"iter"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/errors"
)

// Sequence is a value that can open a puller over its elements.
type Sequence[T any] interface {
	Puller() Puller[T]
}

// DeferredSequence is a value whose puller only becomes available later.
type DeferredSequence[T any] interface {
	DeferredPuller() deferred.Maybe[Puller[T]]
}

// Materialize obtains a puller from x. Accepted shapes, in order of
// preference: Puller, Sequence, DeferredSequence, Iterator, slice and
// iter.Seq. Anything else yields a CONFIGURATION error.
func Materialize[T any](x any) (Puller[T], error) {
	switch v := x.(type) {
	case nil:
		return nil, errors.NotMaterializable("<nil>")
	case Puller[T]:
		return v, nil
	case Sequence[T]:
		if p := v.Puller(); p != nil {
			return p, nil
		}
	case DeferredSequence[T]:
		return &lazy[T]{open: v.DeferredPuller()}, nil
	case Iterator[T]:
		return FromIterator(v), nil
	case []T:
		return FromSlice(v), nil
	case iter.Seq[T]:
		return FromSeq(v), nil
	case func(func(T) bool):
		return FromSeq(iter.Seq[T](v)), nil
	}
	return nil, errors.NotMaterializable(fmt.Sprintf("%T", x))
}

// lazy pulls from a puller that is opened asynchronously.
type lazy[T any] struct {
	open deferred.Maybe[Puller[T]]
}

func (l *lazy[T]) Next(ctx context.Context) deferred.Maybe[Result[T]] {
	if f := l.open.Future(); f == nil || f.Settled() {
		p, err := l.open.Get()
		if err != nil {
			return deferred.Fail[Result[T]](err)
		}
		return p.Next(ctx)
	}
	return deferred.Then(l.open, func(p Puller[T]) deferred.Maybe[Result[T]] {
		return p.Next(ctx)
	})
}

func (l *lazy[T]) Close(ctx context.Context) error {
	if p, ok := l.opened(); ok {
		Close(ctx, p)
	}
	return nil
}

func (l *lazy[T]) Abort(ctx context.Context, reason error) error {
	if p, ok := l.opened(); ok {
		Abort(ctx, p, reason)
	}
	return nil
}

func (l *lazy[T]) opened() (Puller[T], bool) {
	if f := l.open.Future(); f != nil && !f.Settled() {
		return nil, false
	}
	p, err := l.open.Get()
	return p, err == nil && p != nil
}
