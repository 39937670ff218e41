package pipeline

import (
	"context"
	"sync"

	"github.com/kbukum/powermap"
	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/ops"
	"github.com/kbukum/powermap/pull"
)

type none = struct{}

// Map transforms each value using fn.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return Through(p, ops.Map(fn))
}

// MapAsync transforms each value using fn, which may answer later. Values
// keep their order.
func MapAsync[I, O any](p *Pipeline[I], fn func(context.Context, I) deferred.Maybe[O]) *Pipeline[O] {
	return Through(p, ops.MapAsync(fn))
}

// FlatMap transforms each value into an iterator and flattens the results.
// A nil iterator contributes nothing.
func FlatMap[I, O any](p *Pipeline[I], fn func(context.Context, I) (Iterator[O], error)) *Pipeline[O] {
	return Through(p, powermap.New(func(ctx context.Context, in pull.Result[I], _ none) deferred.Maybe[powermap.Outcome[O, none]] {
		v, ok := in.Get()
		if !ok {
			return deferred.Value(powermap.Done[O, none]())
		}
		inner, err := fn(ctx, v)
		if err != nil {
			return deferred.Fail[powermap.Outcome[O, none]](err)
		}
		if inner == nil {
			return deferred.Value(powermap.Skip[O, none]())
		}
		return deferred.Value(powermap.EmitMany[O, none](inner))
	}, nil, powermap.WithName("flat_map")))
}

// Filter keeps only values that satisfy the predicate.
func Filter[T any](p *Pipeline[T], fn func(T) bool) *Pipeline[T] {
	return Through(p, ops.Filter(fn))
}

// Tap calls fn as a side-effect for each value, then passes the value through unchanged.
// Use for logging, metrics, or mid-pipeline publishing.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T) error) *Pipeline[T] {
	return Through(p, ops.Tap(fn))
}

// TapEach applies fns[i] to element i of each []T as a side-effect, then
// passes the slice through unchanged. Useful after FanOut.
func TapEach[T any](p *Pipeline[[]T], fns ...func(context.Context, T) error) *Pipeline[[]T] {
	return Through(p, ops.Tap(func(ctx context.Context, vals []T) error {
		for i := range min(len(fns), len(vals)) {
			if err := fns[i](ctx, vals[i]); err != nil {
				return err
			}
		}
		return nil
	}, powermap.WithName("tap_each")))
}

// FanOut applies multiple functions to each input value in parallel
// and collects all results as a slice.
func FanOut[I, O any](p *Pipeline[I], fns ...func(context.Context, I) (O, error)) *Pipeline[[]O] {
	return Through(p, ops.MapAsync(func(ctx context.Context, v I) deferred.Maybe[[]O] {
		return deferred.Async(func() ([]O, error) {
			results := make([]O, len(fns))
			errs := make([]error, len(fns))
			var wg sync.WaitGroup
			for i, fn := range fns {
				wg.Go(func() {
					results[i], errs[i] = fn(ctx, v)
				})
			}
			wg.Wait()
			for _, e := range errs {
				if e != nil {
					return nil, e
				}
			}
			return results, nil
		})
	}, powermap.WithName("fan_out")))
}

// Reduce accumulates all values into a single result.
// The pipeline yields exactly one value: the final accumulator.
func Reduce[T, R any](p *Pipeline[T], init R, fn func(R, T) R) *Pipeline[R] {
	return Through(p, ops.Reduce(func() R { return init }, fn))
}

// Take yields the first n values and stops pulling from p.
func Take[T any](p *Pipeline[T], n int) *Pipeline[T] {
	return Through(p, ops.Take[T](n))
}

// Skip drops the first n values.
func Skip[T any](p *Pipeline[T], n int) *Pipeline[T] {
	return Through(p, ops.Skip[T](n))
}

// Distinct drops values whose key was already seen during the run.
func Distinct[T any, K comparable](p *Pipeline[T], key func(T) K) *Pipeline[T] {
	return Through(p, ops.Distinct(key))
}

// Concat joins multiple pipelines sequentially.
// All values from the first pipeline are yielded before the second, etc.
// Each pipeline is started only once the previous one is exhausted.
func Concat[T any](pipelines ...*Pipeline[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) pull.Puller[T] {
			next := powermap.New(powermap.Sync(func(in pull.Result[*Pipeline[T]], _ none) (powermap.Outcome[T, none], error) {
				p, ok := in.Get()
				if !ok {
					return powermap.Done[T, none](), nil
				}
				return powermap.EmitMany[T, none](p.create(ctx)), nil
			}), nil, powermap.WithName("concat"))
			return next(pull.FromSlice(pipelines))
		},
	}
}
