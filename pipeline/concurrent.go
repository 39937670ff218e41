package pipeline

import (
	"context"

	"github.com/kbukum/powermap/drain"
)

// ParallelForEach pulls all values and runs fn for each with up to n calls
// in flight. Values are pulled in order but fn calls may finish in any
// order. The first fn error stops further pulls, waits for the calls
// already running and is returned.
func ParallelForEach[T any](ctx context.Context, p *Pipeline[T], n int, fn func(context.Context, T) error, opts ...drain.Option) error {
	opts = append([]drain.Option{drain.WithConcurrency(max(n, 1))}, opts...)
	_, err := drain.ForEach(ctx, p.create(ctx), drain.Blocking(fn), opts...).Await(ctx)
	return err
}
