package drain

import (
	"context"
	"sync"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/errors"
	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/observability"
	"github.com/kbukum/powermap/pull"
	"github.com/kbukum/powermap/resilience"
)

// Handler processes one element, immediately or deferred.
type Handler[T any] func(ctx context.Context, v T) deferred.Maybe[struct{}]

// Inline adapts fn to a handler that runs on the pulling goroutine.
func Inline[T any](fn func(context.Context, T) error) Handler[T] {
	return func(ctx context.Context, v T) deferred.Maybe[struct{}] {
		return deferred.Settle(struct{}{}, fn(ctx, v))
	}
}

// Blocking adapts fn to a handler that runs in its own goroutine, so that
// several calls can be in flight at once.
func Blocking[T any](fn func(context.Context, T) error) Handler[T] {
	return func(ctx context.Context, v T) deferred.Maybe[struct{}] {
		return deferred.Async(func() (struct{}, error) {
			return struct{}{}, fn(ctx, v)
		})
	}
}

// Sink returns ForEach bound to handler and opts.
func Sink[T any](handler Handler[T], opts ...Option) func(context.Context, pull.Puller[T]) deferred.Maybe[struct{}] {
	return func(ctx context.Context, p pull.Puller[T]) deferred.Maybe[struct{}] {
		return ForEach(ctx, p, handler, opts...)
	}
}

// ForEach pulls p until done and calls handler for every element, keeping at
// most WithConcurrency handlers in flight. The next element is pulled before
// the current handler completes. With a limit above one, handlers may
// complete out of order.
//
// The first handler failure is forwarded upstream with Abort and returned
// as a HANDLER_FAILED error once in-flight handlers have finished. Later
// failures are logged and dropped. In-flight handlers are never cancelled.
func ForEach[T any](ctx context.Context, p pull.Puller[T], handler Handler[T], opts ...Option) deferred.Maybe[struct{}] {
	o := newOptions(opts)
	if o.err != nil {
		return deferred.Fail[struct{}](o.err)
	}
	r := begin(ctx, helperForEach, observability.SpanForEach, o)
	observability.SetSpanAttribute(r.ctx, observability.AttrConcurrency, o.concurrency)

	switch {
	case p == nil:
		err := errors.Configuration("cannot drain a nil puller")
		r.end(err, 0)
		return deferred.Fail[struct{}](err)
	case handler == nil:
		err := errors.Configuration("ForEach called with a nil handler")
		r.end(err, 0)
		return deferred.Fail[struct{}](err)
	}

	f := &forEach[T]{
		ctx:     r.ctx,
		p:       p,
		handler: handler,
		log:     r.log.WithFields(logger.Fields(logger.FieldConcurrency, o.concurrency)),
		metrics: o.metrics,
		slots: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "drain.for_each",
			MaxConcurrent: o.concurrency,
		}),
	}
	f.pending = p.Next(f.ctx)

	if f.advance(false) {
		err := f.result()
		r.end(err, f.count)
		return deferred.Settle(struct{}{}, err)
	}
	return deferred.Async(func() (struct{}, error) {
		f.advance(true)
		err := f.result()
		r.end(err, f.count)
		return struct{}{}, err
	})
}

type forEachStage uint8

const (
	stagePull forEachStage = iota
	stageAcquire
	stageDrain
)

// forEach is the state of one ForEach run. The fields between stage and
// aborted belong to the driver; handler completions only touch failure.
type forEach[T any] struct {
	ctx     context.Context
	p       pull.Puller[T]
	handler Handler[T]
	slots   *resilience.Bulkhead
	log     *logger.Logger
	metrics *observability.Metrics

	stage   forEachStage
	pending deferred.Maybe[pull.Result[T]]
	value   T
	count   int
	upErr   error
	aborted bool

	wg      sync.WaitGroup
	mu      sync.Mutex
	failure error
}

// advance runs the driver until the run is over. When wait is false it
// returns false at the first point that would block, leaving the stage set
// so a later call resumes there.
func (f *forEach[T]) advance(wait bool) bool {
	for {
		switch f.stage {
		case stagePull:
			if f.failed() {
				f.abort()
				continue
			}
			if f.pending.IsDeferred() && !wait {
				return false
			}
			res, err := f.pending.Await(f.ctx)
			f.pending = deferred.Maybe[pull.Result[T]]{}
			if err != nil {
				f.upErr = err
				if errors.Is(err, errors.ErrCodeCancelled) {
					pull.Abort(f.ctx, f.p, err)
				}
				f.stage = stageDrain
				continue
			}
			v, ok := res.Get()
			if !ok {
				f.stage = stageDrain
				continue
			}
			f.value = v
			f.stage = stageAcquire

		case stageAcquire:
			if f.failed() {
				f.abort()
				continue
			}
			if !f.slots.TryAcquire() {
				if !wait {
					return false
				}
				if err := f.slots.Acquire(f.ctx); err != nil {
					f.upErr = errors.Cancelled(err)
					pull.Abort(f.ctx, f.p, f.upErr)
					f.stage = stageDrain
					continue
				}
				// The slot may have been freed by a failing handler.
				if f.failed() {
					f.slots.Release()
					f.abort()
					continue
				}
			}
			v := f.value
			var zero T
			f.value = zero
			f.dispatch(v)
			f.pending = f.p.Next(f.ctx)
			f.stage = stagePull

		case stageDrain:
			if f.slots.InUse() > 0 {
				if !wait {
					return false
				}
				f.wg.Wait()
			}
			if f.upErr == nil && f.failed() {
				f.abort()
			}
			return true
		}
	}
}

func (f *forEach[T]) dispatch(v T) {
	f.count++
	f.metrics.AddInFlight(f.ctx, helperForEach, 1)

	m := f.invoke(v)
	if !m.IsDeferred() {
		_, err := m.Get()
		f.complete(err)
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		_, err := m.Wait()
		f.complete(err)
	}()
}

func (f *forEach[T]) invoke(v T) (m deferred.Maybe[struct{}]) {
	defer func() {
		if r := recover(); r != nil {
			m = deferred.Fail[struct{}](errors.Panicked(r))
		}
	}()
	return f.handler(f.ctx, v)
}

// complete runs when a handler settles, possibly on another goroutine.
func (f *forEach[T]) complete(err error) {
	if err != nil {
		f.record(err)
	}
	f.metrics.AddInFlight(f.ctx, helperForEach, -1)
	f.slots.Release()
}

func (f *forEach[T]) record(err error) {
	f.metrics.RecordHandlerFailure(f.ctx, helperForEach)

	f.mu.Lock()
	first := f.failure == nil
	if first {
		f.failure = errors.HandlerFailed(err)
	}
	f.mu.Unlock()

	if !first {
		f.log.WithError(err).Warn("handler failed after an earlier failure; not forwarded")
	}
}

func (f *forEach[T]) failed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure != nil
}

// abort forwards the first handler failure upstream and stops pulling.
func (f *forEach[T]) abort() {
	f.stage = stageDrain
	if f.aborted {
		return
	}
	f.aborted = true

	f.mu.Lock()
	reason := f.failure
	f.mu.Unlock()

	f.log.WithError(reason).Debug("aborting upstream after handler failure")
	pull.Abort(f.ctx, f.p, reason)
}

func (f *forEach[T]) result() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		return f.failure
	}
	return f.upErr
}
