// Package pull defines the lazy, consumer-driven sequence contract used by
// every stage of powermap, and the adapters that turn ordinary Go values
// into pullers.
//
// A [Puller] produces one [Result] per Next call, either immediately or
// deferred. Closing and aborting are optional capabilities discovered at
// runtime through [Closer] and [Aborter]; use [Close] and [Abort] to signal
// a puller without caring whether it supports them.
//
// Sources:
//
//	pull.FromSlice([]int{1, 2, 3})
//	pull.FromSeq(maps.Keys(m))
//	pull.FromIterator(rows)   // blocking Iterator
//	pull.Async(p)             // every pull deferred
//
// [Materialize] turns any of the accepted payload shapes into a puller and
// is how multi-value outcomes are expanded.
package pull
