// Package deferred models results that are either available immediately or
// produced later by another goroutine.
//
// A [Maybe] is the return type of every pull and handler in powermap. Code
// that receives one checks [Maybe.IsDeferred]: immediate results are read
// with [Maybe.Get] without blocking, deferred ones with [Maybe.Await].
//
//	m := deferred.Then(p.Next(ctx), func(r pull.Result[int]) deferred.Maybe[int] {
//	    return deferred.Value(r.Value() * 2)
//	})
//	v, err := m.Await(ctx)
//
// Combinators stay synchronous for immediate inputs, so a chain of immediate
// values never spawns a goroutine.
package deferred
