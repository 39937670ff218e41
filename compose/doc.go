// Package compose chains steps into larger steps and provides ForLoop, a
// loop that stays synchronous for as long as its condition and body do.
//
//	clean := compose.Pipe3(
//	    ops.Filter(nonEmpty),
//	    ops.Map(lower),
//	    ops.Distinct(identity),
//	)
//	words, err := drain.Collect(ctx, clean(pull.FromSlice(lines))).Await(ctx)
package compose
