// Package powermap is a lazy, pull-driven transformation engine.
//
// A step built with [New] wraps an upstream [pull.Puller] and, on every
// pull, feeds upstream results through a [Transition] until the transition
// decides to emit. A transition can keep state across calls, skip inputs,
// emit one value, expand one input into many, or end the sequence early.
//
// Each instance answers pulls immediately for as long as everything it
// touches answers immediately. The first time the upstream, the transition
// or an expansion answers with a pending value, the instance switches to
// [ModeDeferred] and answers every later pull with a pending result.
//
//	take := powermap.New(powermap.Sync(func(in pull.Result[string], n int) (powermap.Outcome[string, int], error) {
//	    v, ok := in.Get()
//	    if !ok {
//	        return powermap.Done[string, int](), nil
//	    }
//	    out := powermap.Emit[string, int](v).WithState(n + 1)
//	    if n+1 == 3 {
//	        out = out.AsLast()
//	    }
//	    return out, nil
//	}), nil, powermap.WithName("take3"))
//
//	p := take(pull.FromSlice(lines))
//	got, err := drain.Collect(ctx, p).Await(ctx)
//
// Errors from the transition or an expansion end the instance and abort
// upstream. Errors from upstream itself end the instance and are returned
// unchanged.
package powermap
