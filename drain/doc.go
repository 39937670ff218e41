// Package drain provides the terminal operations that pull a puller to the
// end.
//
// The collect helpers accumulate values:
//
//   - Collect: every value, in order, as a slice
//   - CollectMap: a map keyed by a caller-supplied function
//   - CollectText: the values formatted and concatenated
//
// ForEach hands every value to a handler while keeping a bounded number of
// handlers in flight.
//
// Every helper answers immediately when the puller (and, for ForEach, the
// handler) answered every call immediately, and with a pending result
// otherwise. Each run gets a run id and an OpenTelemetry span.
//
//	words, err := drain.Collect(ctx, p).Await(ctx)
//
//	err := drain.ForEach(ctx, p, drain.Blocking(upload), drain.WithConcurrency(4)).Await(ctx)
package drain
