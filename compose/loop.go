package compose

import (
	"context"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/errors"
)

// ForLoop runs body while cond holds, threading state through each
// iteration, and returns the final state. It answers immediately when every
// call to cond and body did; from the first pending answer on, the loop
// continues in a goroutine. The loop never recurses, however many
// iterations it runs.
//
//	n := compose.ForLoop(ctx, 0,
//	    func(i int) deferred.Maybe[bool] { return deferred.Value(i < 10) },
//	    func(i int) deferred.Maybe[int] { return deferred.Value(i + 1) },
//	)
func ForLoop[S any](ctx context.Context, state S, cond func(S) deferred.Maybe[bool], body func(S) deferred.Maybe[S]) deferred.Maybe[S] {
	if cond == nil || body == nil {
		return deferred.Fail[S](errors.Configuration("ForLoop called with a nil condition or body"))
	}
	l := &loop[S]{ctx: ctx, state: state, cond: cond, body: body}
	if l.advance(false) {
		return deferred.Settle(l.result())
	}
	return deferred.Async(func() (S, error) {
		l.advance(true)
		return l.result()
	})
}

type loopStage uint8

const (
	loopCheck loopStage = iota
	loopTest
	loopBody
)

type loop[S any] struct {
	ctx   context.Context
	state S
	cond  func(S) deferred.Maybe[bool]
	body  func(S) deferred.Maybe[S]
	err   error

	stage loopStage
	test  deferred.Maybe[bool]
	next  deferred.Maybe[S]
}

func (l *loop[S]) advance(wait bool) bool {
	for {
		switch l.stage {
		case loopCheck:
			l.test = guard(l.cond, l.state)
			l.stage = loopTest

		case loopTest:
			if l.test.IsDeferred() && !wait {
				return false
			}
			ok, err := l.test.Await(l.ctx)
			if err != nil {
				l.err = err
				return true
			}
			if !ok {
				return true
			}
			l.next = guard(l.body, l.state)
			l.stage = loopBody

		case loopBody:
			if l.next.IsDeferred() && !wait {
				return false
			}
			s, err := l.next.Await(l.ctx)
			if err != nil {
				l.err = err
				return true
			}
			l.state = s
			l.stage = loopCheck
		}
	}
}

func (l *loop[S]) result() (S, error) {
	if l.err != nil {
		var zero S
		return zero, l.err
	}
	return l.state, nil
}

func guard[S, R any](fn func(S) deferred.Maybe[R], s S) (m deferred.Maybe[R]) {
	defer func() {
		if r := recover(); r != nil {
			m = deferred.Fail[R](errors.Panicked(r))
		}
	}()
	return fn(s)
}
