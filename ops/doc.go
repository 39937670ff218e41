// Package ops holds ready-made steps built on the powermap engine. Each one
// is a transition function plus a state factory, so every instance starts
// from fresh state.
//
//   - Map, MapAsync, FlatMap, Filter, Tap: per-value transforms
//   - Take, Skip: position-based cuts; Take stops pulling upstream once done
//   - Reduce, Batch: stateful aggregation flushed when upstream ends
//   - Distinct: key-based de-duplication
//   - Throttle, RateLimit: token-bucket flow control (drop vs. delay)
//
// Steps compose with the compose package:
//
//	top := compose.Pipe3(
//	    ops.Filter(func(s string) bool { return s != "" }),
//	    ops.Distinct(func(s string) string { return s }),
//	    ops.Take[string](10),
//	)
package ops
