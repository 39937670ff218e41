package drain

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/errors"
	"github.com/kbukum/powermap/observability"
	"github.com/kbukum/powermap/pull"
)

// Collect pulls p until done and returns every value in order. The result
// is immediate when every pull answered immediately; once a pull is
// deferred, the rest of the run happens in a goroutine.
//
// On failure the values collected so far are discarded.
func Collect[T any](ctx context.Context, p pull.Puller[T], opts ...Option) deferred.Maybe[[]T] {
	return fold(ctx, p, helperCollect, observability.SpanCollect, newOptions(opts),
		make([]T, 0),
		func(acc []T, v T) []T { return append(acc, v) },
	)
}

// CollectMap pulls p until done and stores the key and value kv derives from
// each element. Later keys overwrite earlier ones.
func CollectMap[T any, K comparable, V any](ctx context.Context, p pull.Puller[T], kv func(T) (K, V), opts ...Option) deferred.Maybe[map[K]V] {
	if kv == nil {
		return deferred.Fail[map[K]V](errors.Configuration("CollectMap called with a nil key function"))
	}
	return fold(ctx, p, helperCollectMap, observability.SpanCollectMap, newOptions(opts),
		make(map[K]V),
		func(acc map[K]V, v T) map[K]V {
			k, val := kv(v)
			acc[k] = val
			return acc
		},
	)
}

// CollectText pulls p until done and concatenates the values, formatted
// with fmt.Sprint and joined by the WithSeparator text.
func CollectText[T any](ctx context.Context, p pull.Puller[T], opts ...Option) deferred.Maybe[string] {
	o := newOptions(opts)
	var b strings.Builder
	n := 0
	m := fold(ctx, p, helperCollectText, observability.SpanCollectText, o,
		&b,
		func(acc *strings.Builder, v T) *strings.Builder {
			if n > 0 {
				acc.WriteString(o.separator)
			}
			n++
			fmt.Fprint(acc, v)
			return acc
		},
	)
	return deferred.Map(m, func(sb *strings.Builder) (string, error) { return sb.String(), nil })
}

// fold is the shared pull loop of the collect helpers.
func fold[T, A any](ctx context.Context, p pull.Puller[T], helper, spanName string, o options, acc A, add func(A, T) A) deferred.Maybe[A] {
	if o.err != nil {
		return deferred.Fail[A](o.err)
	}
	r := begin(ctx, helper, spanName, o)
	ctx = r.ctx

	count := 0
	finish := func(err error) (A, error) {
		r.end(err, count)
		if err != nil {
			var zero A
			return zero, err
		}
		return acc, nil
	}
	if p == nil {
		return deferred.Settle(finish(errors.Configuration("cannot drain a nil puller")))
	}

	// absorb reports whether the run is over.
	absorb := func(m deferred.Maybe[pull.Result[T]]) (bool, error) {
		res, err := m.Await(ctx)
		if err != nil {
			if errors.Is(err, errors.ErrCodeCancelled) {
				pull.Abort(ctx, p, err)
			}
			return true, err
		}
		v, ok := res.Get()
		if !ok {
			return true, nil
		}
		acc = add(acc, v)
		count++
		return false, nil
	}

	m := p.Next(ctx)
	for !m.IsDeferred() {
		if done, err := absorb(m); done {
			return deferred.Settle(finish(err))
		}
		m = p.Next(ctx)
	}

	return deferred.Async(func() (A, error) {
		for {
			if done, err := absorb(m); done {
				return finish(err)
			}
			m = p.Next(ctx)
		}
	})
}
