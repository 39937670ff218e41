package pull

import (
	"context"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/errors"
	"github.com/kbukum/powermap/logger"
)

// Puller is a lazy, consumer-driven sequence. Each Next call yields the next
// Result either immediately or deferred. Once Next has produced Done, every
// later call produces Done again.
//
// Next must not be called concurrently; callers wait for one result before
// requesting the next unless the implementation states otherwise.
type Puller[T any] interface {
	Next(ctx context.Context) deferred.Maybe[Result[T]]
}

// Closer is implemented by pullers that hold resources and can be told to
// stop early.
type Closer interface {
	Close(ctx context.Context) error
}

// Aborter is implemented by pullers that can be told the consumer failed.
type Aborter interface {
	Abort(ctx context.Context, reason error) error
}

// Step turns an upstream puller into a downstream one.
type Step[In, Out any] func(Puller[In]) Puller[Out]

// Func adapts a plain function to a Puller.
type Func[T any] func(ctx context.Context) deferred.Maybe[Result[T]]

// Next calls f.
func (f Func[T]) Next(ctx context.Context) deferred.Maybe[Result[T]] { return f(ctx) }

// Close asks p to release its resources if it supports closing. Failures and
// panics are logged and swallowed.
func Close(ctx context.Context, p any) {
	c, ok := p.(Closer)
	if !ok {
		return
	}
	deliver(ctx, "close", func() error { return c.Close(ctx) })
}

// Abort tells p that its consumer failed with reason. Pullers without an
// Abort method are closed instead. Failures and panics are logged and
// swallowed.
func Abort(ctx context.Context, p any, reason error) {
	if a, ok := p.(Aborter); ok {
		deliver(ctx, "abort", func() error { return a.Abort(ctx, reason) })
		return
	}
	Close(ctx, p)
}

func deliver(ctx context.Context, signal string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get("pull").WithContext(ctx).WithError(errors.Panicked(r)).
				Warn("signal delivery panicked", logger.Fields(logger.FieldSignal, signal))
		}
	}()
	if err := fn(); err != nil {
		logger.Get("pull").WithContext(ctx).WithError(err).
			Warn("signal delivery failed", logger.Fields(logger.FieldSignal, signal))
	}
}
