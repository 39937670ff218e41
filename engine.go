package powermap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/errors"
	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/observability"
	"github.com/kbukum/powermap/pull"
)

// Mode is how an instance answers pulls.
type Mode uint8

const (
	// ModeUndetermined is the mode before the first pull completes.
	ModeUndetermined Mode = iota
	// ModeImmediate answers every pull immediately.
	ModeImmediate
	// ModeDeferred answers every pull with a pending result. An instance
	// never leaves this mode once it enters it.
	ModeDeferred
)

func (m Mode) String() string {
	switch m {
	case ModeImmediate:
		return "immediate"
	case ModeDeferred:
		return "deferred"
	default:
		return "undetermined"
	}
}

// ModeOf returns the mode of p if it is a power-map instance.
func ModeOf(p any) (Mode, bool) {
	m, ok := p.(interface{ Mode() Mode })
	if !ok {
		return ModeUndetermined, false
	}
	return m.Mode(), true
}

// stage is the suspension point of the pull loop.
type stage uint8

const (
	stageIdle stage = iota
	stageSub
	stageUpstream
	stageTransition
)

func (s stage) String() string {
	switch s {
	case stageSub:
		return "sub"
	case stageUpstream:
		return "upstream"
	case stageTransition:
		return "transition"
	default:
		return "idle"
	}
}

const (
	signalClose = "close"
	signalAbort = "abort"
)

type stopRequest struct {
	ctx    context.Context
	signal string
	reason error
}

// Instance is a stateful transformation over an upstream puller. It is
// itself a puller, and forwards Close and Abort upstream.
//
// Next must not be called concurrently. Pulls that return pending results
// may be issued back to back; they are answered in order.
type Instance[In, Out, S any] struct {
	id      uuid.UUID
	name    string
	log     *logger.Logger
	metrics *observability.Metrics

	fn       Transition[In, Out, S]
	upstream pull.Puller[In]
	state    S

	sub          pull.Puller[Out]
	subDeferred  bool
	subLast      bool
	upstreamDone bool
	terminal     bool

	mode Mode
	// tail is closed when the most recent deferred pull has settled.
	tail <-chan struct{}

	stage      stage
	subPending deferred.Maybe[pull.Result[Out]]
	upPending  deferred.Maybe[pull.Result[In]]
	outPending deferred.Maybe[Outcome[Out, S]]

	// mu guards inflight and stopped. A stop request is carried out by
	// Close/Abort when no pull is running, otherwise by the last running
	// pull as it finishes, so upstream never sees a signal concurrently
	// with a Next.
	mu        sync.Mutex
	inflight  int
	stopped   bool
	stop      atomic.Pointer[stopRequest]
	signalled atomic.Bool
}

// New returns a step that applies fn to every result of its upstream.
// init builds the initial state for each instance; nil means the zero
// value.
//
//	double := powermap.New(powermap.Sync(func(in pull.Result[int], _ struct{}) (powermap.Outcome[int, struct{}], error) {
//	    v, ok := in.Get()
//	    if !ok {
//	        return powermap.Done[int, struct{}](), nil
//	    }
//	    return powermap.Emit[int, struct{}](v * 2), nil
//	}), nil)
func New[In, Out, S any](fn Transition[In, Out, S], init func() S, opts ...Option) pull.Step[In, Out] {
	if fn == nil {
		panic("powermap: New called with a nil transition")
	}
	return func(upstream pull.Puller[In]) pull.Puller[Out] {
		return Apply(upstream, fn, init, opts...)
	}
}

// Apply builds one instance of fn over upstream.
func Apply[In, Out, S any](upstream pull.Puller[In], fn Transition[In, Out, S], init func() S, opts ...Option) *Instance[In, Out, S] {
	o := newOptions(opts)
	e := &Instance[In, Out, S]{
		id:       uuid.New(),
		name:     o.name,
		metrics:  o.metrics,
		fn:       fn,
		upstream: upstream,
	}
	e.log = o.log.WithFields(logger.Fields(
		logger.FieldStep, e.name,
		logger.FieldStepID, e.id.String(),
	))
	if init != nil {
		e.state = init()
	}
	return e
}

// ID returns the instance id.
func (e *Instance[In, Out, S]) ID() uuid.UUID { return e.id }

// Name returns the step name.
func (e *Instance[In, Out, S]) Name() string { return e.name }

// Mode returns the current mode.
func (e *Instance[In, Out, S]) Mode() Mode { return e.mode }

// Next pulls the next output value.
func (e *Instance[In, Out, S]) Next(ctx context.Context) deferred.Maybe[pull.Result[Out]] {
	e.begin()
	if e.mode == ModeDeferred {
		return e.schedule(ctx)
	}

	r, settled, err := e.advance(ctx, false)
	if !settled {
		e.mode = ModeDeferred
		e.log.WithContext(ctx).Debug("switched to deferred mode", logger.Fields(logger.FieldStage, e.stage.String()))
		return e.schedule(ctx)
	}

	e.mode = ModeImmediate
	e.end()
	e.metrics.RecordPull(ctx, e.name, ModeImmediate.String())
	return deferred.Settle(r, err)
}

// schedule resumes the pull loop in a goroutine once the previous deferred
// pull has settled. The goroutine takes over the running pull counted by
// begin.
func (e *Instance[In, Out, S]) schedule(ctx context.Context) deferred.Maybe[pull.Result[Out]] {
	prev := e.tail
	f := deferred.Go(func() (pull.Result[Out], error) {
		defer e.end()
		if prev != nil {
			<-prev
		}
		r, _, err := e.advance(ctx, true)
		e.metrics.RecordPull(ctx, e.name, ModeDeferred.String())
		return r, err
	})
	e.tail = f.Done()
	return deferred.Pending(f)
}

// advance runs the pull loop until it produces a result. When wait is
// false it stops at the first pending value and reports settled=false; the
// loop resumes from the same stage on the next call.
func (e *Instance[In, Out, S]) advance(ctx context.Context, wait bool) (r pull.Result[Out], settled bool, err error) {
	for {
		switch e.stage {
		case stageIdle:
			if e.terminal {
				return pull.Done[Out](), true, nil
			}
			if req := e.stop.Load(); req != nil {
				e.mu.Lock()
				e.stopNow(req)
				e.mu.Unlock()
				return pull.Done[Out](), true, nil
			}
			switch {
			case e.sub != nil:
				e.subPending = e.sub.Next(ctx)
				e.stage = stageSub
			case e.upstream == nil:
				return e.fail(ctx, errors.Configuration("upstream puller is nil"))
			case e.upstreamDone:
				e.upPending = deferred.Value(pull.Done[In]())
				e.stage = stageUpstream
			default:
				e.upPending = e.upstream.Next(ctx)
				e.stage = stageUpstream
			}

		case stageSub:
			if e.subPending.IsDeferred() {
				e.subDeferred = true
				if !wait {
					return pull.Result[Out]{}, false, nil
				}
			}
			res, err := e.subPending.Await(ctx)
			e.subPending = deferred.Maybe[pull.Result[Out]]{}
			e.stage = stageIdle
			if err != nil {
				sub := e.sub
				e.sub, e.subDeferred = nil, false
				pull.Abort(ctx, sub, err)
				return e.fail(ctx, err)
			}
			if !res.IsDone() {
				e.metrics.RecordEmit(ctx, e.name)
				return res, true, nil
			}
			e.sub, e.subDeferred = nil, false
			if e.subLast {
				e.terminal = true
			}

		case stageUpstream:
			if e.upPending.IsDeferred() && !wait {
				return pull.Result[Out]{}, false, nil
			}
			in, err := e.upPending.Await(ctx)
			e.upPending = deferred.Maybe[pull.Result[In]]{}
			if err != nil {
				// Upstream failures are the producer's own; nothing is sent back.
				e.stage = stageIdle
				e.terminal = true
				e.metrics.RecordFailure(ctx, e.name, kindOf(err))
				return pull.Done[Out](), true, err
			}
			if in.IsDone() {
				e.upstreamDone = true
			}
			e.outPending = e.call(ctx, in)
			e.stage = stageTransition

		case stageTransition:
			if e.outPending.IsDeferred() && !wait {
				return pull.Result[Out]{}, false, nil
			}
			out, err := e.outPending.Await(ctx)
			e.outPending = deferred.Maybe[Outcome[Out, S]]{}
			e.stage = stageIdle
			if err != nil {
				return e.fail(ctx, errors.TransitionFailed(e.name, err))
			}
			if r, settled, err := e.apply(ctx, out); settled {
				return r, true, err
			}
		}
	}
}

// apply interprets an outcome. It reports settled=false when the loop must
// keep going.
func (e *Instance[In, Out, S]) apply(ctx context.Context, out Outcome[Out, S]) (pull.Result[Out], bool, error) {
	// Only EmitMany may carry Values; any other kind would drop them.
	switch {
	case out.Values == nil || out.Kind == KindEmitMany:
	case out.Kind == KindEmit:
		return e.fail(ctx, errors.MixedPayload())
	default:
		return e.fail(ctx, errors.Configuration(fmt.Sprintf("%s outcome carries values", out.Kind)).
			WithDetail("kind", out.Kind.String()))
	}

	switch out.Kind {
	case KindDone:
		e.terminal = true
		return pull.Done[Out](), true, nil

	case KindSkip:
		e.adopt(out)
		// A skip in answer to the end of input ends the output too.
		if out.Last || e.upstreamDone {
			e.terminal = true
			return pull.Done[Out](), true, nil
		}
		return pull.Result[Out]{}, false, nil

	case KindEmit:
		e.adopt(out)
		if out.Last {
			e.terminal = true
		}
		e.metrics.RecordEmit(ctx, e.name)
		return pull.Value(out.Value), true, nil

	case KindEmitMany:
		sub, err := pull.Materialize[Out](out.Values)
		if err != nil {
			return e.fail(ctx, err)
		}
		e.adopt(out)
		e.sub, e.subLast = sub, out.Last
		return pull.Result[Out]{}, false, nil

	default:
		return e.fail(ctx, errors.Configuration(fmt.Sprintf("unknown outcome kind %d", out.Kind)))
	}
}

func (e *Instance[In, Out, S]) adopt(out Outcome[Out, S]) {
	if out.HasState {
		e.state = out.State
	}
}

func (e *Instance[In, Out, S]) call(ctx context.Context, in pull.Result[In]) (m deferred.Maybe[Outcome[Out, S]]) {
	defer func() {
		if r := recover(); r != nil {
			m = deferred.Fail[Outcome[Out, S]](errors.Panicked(r))
		}
	}()
	return e.fn(ctx, in, e.state)
}

// fail ends the instance and tells upstream that its consumer failed.
func (e *Instance[In, Out, S]) fail(ctx context.Context, err error) (pull.Result[Out], bool, error) {
	e.terminal = true
	e.metrics.RecordFailure(ctx, e.name, kindOf(err))
	e.log.WithContext(ctx).WithError(err).Debug("step failed")
	e.forward(ctx, stopRequest{signal: signalAbort, reason: err})
	return pull.Done[Out](), true, err
}

// Close stops the instance. The active sub-puller and upstream are closed
// on a best-effort basis once no pull is running. Close is idempotent and
// never fails.
func (e *Instance[In, Out, S]) Close(ctx context.Context) error {
	e.requestStop(&stopRequest{ctx: ctx, signal: signalClose})
	return nil
}

// Abort stops the instance because its consumer failed with reason. The
// active sub-puller and upstream are aborted on a best-effort basis once no
// pull is running. Abort is idempotent and never fails.
func (e *Instance[In, Out, S]) Abort(ctx context.Context, reason error) error {
	e.requestStop(&stopRequest{ctx: ctx, signal: signalAbort, reason: reason})
	return nil
}

func (e *Instance[In, Out, S]) requestStop(req *stopRequest) {
	if !e.stop.CompareAndSwap(nil, req) {
		return
	}
	e.log.WithContext(req.ctx).Debug("stop requested", logger.Fields(logger.FieldSignal, req.signal))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight == 0 {
		e.stopNow(req)
	}
}

// begin counts a pull as running.
func (e *Instance[In, Out, S]) begin() {
	e.mu.Lock()
	e.inflight++
	e.mu.Unlock()
}

// end finishes a running pull and carries out a stop request that arrived
// while it ran.
func (e *Instance[In, Out, S]) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight--
	if e.inflight > 0 {
		return
	}
	if req := e.stop.Load(); req != nil {
		e.stopNow(req)
	}
}

// stopNow ends the instance and signals the sub-puller and upstream. The
// caller holds e.mu and no pull is touching the loop state.
func (e *Instance[In, Out, S]) stopNow(req *stopRequest) {
	if e.stopped {
		return
	}
	e.stopped = true
	ctx := context.WithoutCancel(req.ctx)
	e.shutdown(ctx, req)
	e.forward(ctx, *req)
}

func (e *Instance[In, Out, S]) shutdown(ctx context.Context, req *stopRequest) {
	e.terminal = true
	if e.sub == nil {
		return
	}
	if req.signal == signalAbort {
		pull.Abort(ctx, e.sub, req.reason)
	} else {
		pull.Close(ctx, e.sub)
	}
	e.sub = nil
}

// forward sends req upstream. Only the first signal is delivered.
func (e *Instance[In, Out, S]) forward(ctx context.Context, req stopRequest) {
	if e.upstream == nil || !e.signalled.CompareAndSwap(false, true) {
		return
	}
	e.metrics.RecordSignal(ctx, e.name, req.signal)
	if req.signal == signalAbort {
		pull.Abort(ctx, e.upstream, req.reason)
		return
	}
	pull.Close(ctx, e.upstream)
}

func kindOf(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "upstream"
}
