// Package pipeline provides composable, pull-based data pipeline blueprints.
//
// Pipelines are lazy: no work happens until values are pulled via Collect,
// Drain, or ForEach. Each terminal call builds a fresh chain of powermap
// steps, so a pipeline value can be run any number of times. A stage only
// pulls from the previous stage on demand, which gives backpressure
// without explicit flow control.
//
// Sources and stages may answer immediately or later; a chain whose every
// part answers immediately runs on the caller's goroutine.
//
// # Operators
//
// Per value:
//
//   - Map, MapAsync: transform each value
//   - FlatMap: transform each value into multiple values
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value (logging, metrics, mid-pipeline publish)
//   - TapEach: per-element side-effect on []T (e.g., after FanOut)
//   - FanOut: apply multiple functions in parallel, collect results as []O
//
// Stateful:
//
//   - Take, Skip, Distinct
//   - Reduce: accumulate all values into one result
//   - Batch: group values into fixed-size slices
//   - Throttle, RateLimit: drop or delay values that come too fast
//   - Concat: join pipelines sequentially
//
// Any other step plugs in with Through.
//
// # Usage
//
//	src := pipeline.FromSlice([]int{1, 2, 3, 4, 5})
//	doubled := pipeline.Map(src, func(_ context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	evens := pipeline.Filter(doubled, func(n int) bool { return n%2 == 0 })
//	results, _ := pipeline.Collect(ctx, evens)
//
// Handlers that block can run side by side:
//
//	err := pipeline.ParallelForEach(ctx, evens, 4, publish)
package pipeline
