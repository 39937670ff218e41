package ops

import (
	"context"
	"maps"
	"time"

	"github.com/kbukum/powermap"
	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/pull"
	"github.com/kbukum/powermap/resilience"
)

type none = struct{}

func named(name string, opts []powermap.Option) []powermap.Option {
	return append([]powermap.Option{powermap.WithName(name)}, opts...)
}

// Map transforms each value with fn.
func Map[I, O any](fn func(context.Context, I) (O, error), opts ...powermap.Option) pull.Step[I, O] {
	return powermap.New(func(ctx context.Context, in pull.Result[I], _ none) deferred.Maybe[powermap.Outcome[O, none]] {
		v, ok := in.Get()
		if !ok {
			return deferred.Value(powermap.Done[O, none]())
		}
		out, err := fn(ctx, v)
		return deferred.Settle(powermap.Emit[O, none](out), err)
	}, nil, named("map", opts)...)
}

// MapAsync transforms each value with fn, which may answer later.
func MapAsync[I, O any](fn func(context.Context, I) deferred.Maybe[O], opts ...powermap.Option) pull.Step[I, O] {
	return powermap.New(func(ctx context.Context, in pull.Result[I], _ none) deferred.Maybe[powermap.Outcome[O, none]] {
		v, ok := in.Get()
		if !ok {
			return deferred.Value(powermap.Done[O, none]())
		}
		return deferred.Map(fn(ctx, v), func(out O) (powermap.Outcome[O, none], error) {
			return powermap.Emit[O, none](out), nil
		})
	}, nil, named("map_async", opts)...)
}

// Filter keeps the values keep accepts.
func Filter[T any](keep func(T) bool, opts ...powermap.Option) pull.Step[T, T] {
	return powermap.New(powermap.Sync(func(in pull.Result[T], _ none) (powermap.Outcome[T, none], error) {
		v, ok := in.Get()
		switch {
		case !ok:
			return powermap.Done[T, none](), nil
		case keep(v):
			return powermap.Emit[T, none](v), nil
		default:
			return powermap.Skip[T, none](), nil
		}
	}), nil, named("filter", opts)...)
}

// FlatMap replaces each value with the values fn returns for it.
func FlatMap[I, O any](fn func(context.Context, I) ([]O, error), opts ...powermap.Option) pull.Step[I, O] {
	return powermap.New(func(ctx context.Context, in pull.Result[I], _ none) deferred.Maybe[powermap.Outcome[O, none]] {
		v, ok := in.Get()
		if !ok {
			return deferred.Value(powermap.Done[O, none]())
		}
		out, err := fn(ctx, v)
		if out == nil {
			out = []O{}
		}
		return deferred.Settle(powermap.EmitMany[O, none](out), err)
	}, nil, named("flat_map", opts)...)
}

// Tap calls fn for each value and passes the value on unchanged. An error
// from fn fails the step.
func Tap[T any](fn func(context.Context, T) error, opts ...powermap.Option) pull.Step[T, T] {
	return powermap.New(func(ctx context.Context, in pull.Result[T], _ none) deferred.Maybe[powermap.Outcome[T, none]] {
		v, ok := in.Get()
		if !ok {
			return deferred.Value(powermap.Done[T, none]())
		}
		return deferred.Settle(powermap.Emit[T, none](v), fn(ctx, v))
	}, nil, named("tap", opts)...)
}

// Take passes the first n values and then ends without pulling upstream
// again. With n <= 0 it ends after the first upstream pull.
func Take[T any](n int, opts ...powermap.Option) pull.Step[T, T] {
	return powermap.New(powermap.Sync(func(in pull.Result[T], taken int) (powermap.Outcome[T, int], error) {
		v, ok := in.Get()
		if !ok || n <= 0 {
			return powermap.Done[T, int](), nil
		}
		out := powermap.Emit[T, int](v).WithState(taken + 1)
		if taken+1 >= n {
			out = out.AsLast()
		}
		return out, nil
	}), nil, named("take", opts)...)
}

// Skip drops the first n values.
func Skip[T any](n int, opts ...powermap.Option) pull.Step[T, T] {
	return powermap.New(powermap.Sync(func(in pull.Result[T], skipped int) (powermap.Outcome[T, int], error) {
		v, ok := in.Get()
		switch {
		case !ok:
			return powermap.Done[T, int](), nil
		case skipped < n:
			return powermap.Skip[T, int]().WithState(skipped + 1), nil
		default:
			return powermap.Emit[T, int](v), nil
		}
	}), nil, named("skip", opts)...)
}

// Reduce folds every value into an accumulator built by init and emits the
// result once upstream ends.
func Reduce[T, A any](init func() A, fn func(A, T) A, opts ...powermap.Option) pull.Step[T, A] {
	return powermap.New(powermap.Sync(func(in pull.Result[T], acc A) (powermap.Outcome[A, A], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Emit[A, A](acc).AsLast(), nil
		}
		return powermap.Skip[A, A]().WithState(fn(acc, v)), nil
	}), init, named("reduce", opts)...)
}

// Batch groups values into slices of size. The last slice may be shorter.
// A size below one is treated as one.
func Batch[T any](size int, opts ...powermap.Option) pull.Step[T, []T] {
	size = max(size, 1)
	return powermap.New(powermap.Sync(func(in pull.Result[T], buf []T) (powermap.Outcome[[]T, []T], error) {
		v, ok := in.Get()
		if !ok {
			if len(buf) == 0 {
				return powermap.Done[[]T, []T](), nil
			}
			return powermap.Emit[[]T, []T](buf).WithState(nil).AsLast(), nil
		}
		buf = append(buf, v)
		if len(buf) < size {
			return powermap.Skip[[]T, []T]().WithState(buf), nil
		}
		return powermap.Emit[[]T, []T](buf).WithState(make([]T, 0, size)), nil
	}), func() []T { return make([]T, 0, size) }, named("batch", opts)...)
}

// Distinct drops values whose key was already seen. The key set is copied
// whenever a new key arrives, so it suits bounded key spaces.
func Distinct[T any, K comparable](key func(T) K, opts ...powermap.Option) pull.Step[T, T] {
	return powermap.New(powermap.Sync(func(in pull.Result[T], seen map[K]none) (powermap.Outcome[T, map[K]none], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[T, map[K]none](), nil
		}
		k := key(v)
		if _, dup := seen[k]; dup {
			return powermap.Skip[T, map[K]none](), nil
		}
		next := maps.Clone(seen)
		next[k] = none{}
		return powermap.Emit[T, map[K]none](v).WithState(next), nil
	}), func() map[K]none { return make(map[K]none) }, named("distinct", opts)...)
}

// Throttle passes at most one value per interval and drops the rest. An
// interval of zero passes everything.
func Throttle[T any](interval time.Duration, opts ...powermap.Option) pull.Step[T, T] {
	if interval <= 0 {
		return func(p pull.Puller[T]) pull.Puller[T] { return p }
	}
	limiter := func() *resilience.RateLimiter {
		return resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  "throttle",
			Rate:  float64(time.Second) / float64(interval),
			Burst: 1,
		})
	}
	return powermap.New(powermap.Sync(func(in pull.Result[T], rl *resilience.RateLimiter) (powermap.Outcome[T, *resilience.RateLimiter], error) {
		v, ok := in.Get()
		switch {
		case !ok:
			return powermap.Done[T, *resilience.RateLimiter](), nil
		case rl.Allow():
			return powermap.Emit[T, *resilience.RateLimiter](v), nil
		default:
			return powermap.Skip[T, *resilience.RateLimiter](), nil
		}
	}), limiter, named("throttle", opts)...)
}

// RateLimit delays values so that no more than rate per second pass, after
// an initial burst. Nothing is dropped.
func RateLimit[T any](rate float64, burst int, opts ...powermap.Option) pull.Step[T, T] {
	limiter := func() *resilience.RateLimiter {
		return resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  "rate_limit",
			Rate:  rate,
			Burst: burst,
		})
	}
	return powermap.New(func(ctx context.Context, in pull.Result[T], rl *resilience.RateLimiter) deferred.Maybe[powermap.Outcome[T, *resilience.RateLimiter]] {
		v, ok := in.Get()
		switch {
		case !ok:
			return deferred.Value(powermap.Done[T, *resilience.RateLimiter]())
		case rl.Allow():
			return deferred.Value(powermap.Emit[T, *resilience.RateLimiter](v))
		}
		return deferred.Async(func() (powermap.Outcome[T, *resilience.RateLimiter], error) {
			if err := rl.Wait(ctx); err != nil {
				return powermap.Outcome[T, *resilience.RateLimiter]{}, err
			}
			return powermap.Emit[T, *resilience.RateLimiter](v), nil
		})
	}, limiter, named("rate_limit", opts)...)
}
