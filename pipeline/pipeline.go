package pipeline

import (
	"context"
	"iter"

	"github.com/kbukum/powermap/drain"
	"github.com/kbukum/powermap/pull"
)

// Iterator provides blocking sequential access to a stream of values.
type Iterator[T any] = pull.Iterator[T]

// Pipeline is a reusable blueprint for a lazy, pull-based chain of steps.
// Every terminal call builds a fresh chain, so a pipeline can run many
// times and each run starts from fresh step state.
type Pipeline[T any] struct {
	create func(ctx context.Context) pull.Puller[T]
}

// Runnable is a fully-configured pipeline ready to execute.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run executes the pipeline until completion or context cancellation.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// --- Constructors ---

// From creates a pipeline from an existing Iterator. The iterator is
// consumed by the first run.
func From[T any](it Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(context.Context) pull.Puller[T] {
			return pull.FromIterator(it)
		},
	}
}

// FromSlice creates a pipeline from a slice of values.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(context.Context) pull.Puller[T] {
			return pull.FromSlice(items)
		},
	}
}

// FromSeq creates a pipeline from a range-over-func sequence.
func FromSeq[T any](seq iter.Seq[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(context.Context) pull.Puller[T] {
			return pull.FromSeq(seq)
		},
	}
}

// FromFunc creates a pipeline from a factory that produces an Iterator.
func FromFunc[T any](fn func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) pull.Puller[T] {
			return pull.FromIterator(fn(ctx))
		},
	}
}

// FromPuller creates a pipeline from a factory that produces a puller,
// which may answer pulls immediately or later.
func FromPuller[T any](fn func(ctx context.Context) pull.Puller[T]) *Pipeline[T] {
	return &Pipeline[T]{create: fn}
}

// Through attaches step to the end of p.
func Through[I, O any](p *Pipeline[I], step pull.Step[I, O]) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) pull.Puller[O] {
			return step(p.create(ctx))
		},
	}
}

// Puller builds a fresh chain and returns its head. The caller should Close
// it if it stops pulling before the end.
func (p *Pipeline[T]) Puller(ctx context.Context) pull.Puller[T] {
	return p.create(ctx)
}

// Iter returns a blocking Iterator over a fresh chain. The caller must
// Close() it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return pull.ToIterator(p.create(ctx))
}

// --- Terminals ---

// Drain creates a Runnable that pulls all values and sends each to sink.
// The first sink error stops the run and is reported upstream.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error, opts ...drain.Option) *Runnable {
	return &Runnable{
		run: func(ctx context.Context) error {
			_, err := drain.ForEach(ctx, p.create(ctx), drain.Inline(sink), opts...).Await(ctx)
			return err
		},
	}
}

// Collect runs the pipeline and returns all values as a slice. On failure
// no values are returned.
func Collect[T any](ctx context.Context, p *Pipeline[T], opts ...drain.Option) ([]T, error) {
	return drain.Collect(ctx, p.create(ctx), opts...).Await(ctx)
}

// CollectMap runs the pipeline and indexes every value by kv. A later key
// replaces an earlier one.
func CollectMap[T any, K comparable, V any](ctx context.Context, p *Pipeline[T], kv func(T) (K, V), opts ...drain.Option) (map[K]V, error) {
	return drain.CollectMap(ctx, p.create(ctx), kv, opts...).Await(ctx)
}

// Text runs the pipeline and joins the values' default formatting. Use
// drain.WithSeparator to put something between them.
func Text[T any](ctx context.Context, p *Pipeline[T], opts ...drain.Option) (string, error) {
	return drain.CollectText(ctx, p.create(ctx), opts...).Await(ctx)
}

// ForEach pulls all values and calls fn for each. Convenience wrapper around Drain.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	return Drain(p, fn).Run(ctx)
}
