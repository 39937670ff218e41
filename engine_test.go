package powermap_test

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/powermap"
	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/errors"
	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/pull"
	"github.com/kbukum/powermap/testutil"
)

type none = struct{}

func double() pull.Step[int, int] {
	return powermap.New(powermap.Sync(func(in pull.Result[int], _ none) (powermap.Outcome[int, none], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[int, none](), nil
		}
		return powermap.Emit[int, none](v * 2), nil
	}), nil, powermap.WithLogger(logger.Nop()))
}

func repeat[T any](n int) pull.Step[T, T] {
	return powermap.New(powermap.Sync(func(in pull.Result[T], _ none) (powermap.Outcome[T, none], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[T, none](), nil
		}
		out := make([]T, n)
		for i := range out {
			out[i] = v
		}
		return powermap.EmitMany[T, none](out), nil
	}), nil, powermap.WithLogger(logger.Nop()))
}

func failing(err error) pull.Step[int, int] {
	return powermap.New(powermap.Sync(func(in pull.Result[int], _ none) (powermap.Outcome[int, none], error) {
		v, ok := in.Get()
		switch {
		case !ok:
			return powermap.Done[int, none](), nil
		case v == 2:
			return powermap.Outcome[int, none]{}, err
		}
		return powermap.Emit[int, none](v), nil
	}), nil)
}

func TestIdempotentDone(t *testing.T) {
	tests := []struct {
		name   string
		source pull.Puller[int]
	}{
		{"immediate", testutil.NewRecorder(1, 2)},
		{"deferred", testutil.AsyncRecorder(1, 2)},
		{"empty", pull.Empty[int]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.T(t)
			p := double()(tt.source)
			testutil.Drain(h, p)
			for i := 0; i < 3; i++ {
				r := testutil.Await(h, p.Next(h.Context()))
				if !r.IsDone() {
					t.Fatalf("pull %d after done: got %v, want done", i+1, r)
				}
			}
		})
	}
}

func TestModeImmediate(t *testing.T) {
	h := testutil.T(t)
	p := double()(pull.FromSlice([]int{1, 2, 3}))

	if mode, ok := powermap.ModeOf(p); !ok || mode != powermap.ModeUndetermined {
		t.Fatalf("before first pull: got %v, want %v", mode, powermap.ModeUndetermined)
	}

	_, modes := testutil.PullN(h, p, 4)
	for i, d := range modes {
		if d {
			t.Errorf("pull %d was deferred", i+1)
		}
	}
	if mode, _ := powermap.ModeOf(p); mode != powermap.ModeImmediate {
		t.Errorf("got mode %v, want %v", mode, powermap.ModeImmediate)
	}
}

func TestModeLockedAfterDeferredTransition(t *testing.T) {
	h := testutil.T(t)

	var calls atomic.Int32
	step := powermap.New(func(_ context.Context, in pull.Result[int], _ none) deferred.Maybe[powermap.Outcome[int, none]] {
		out := powermap.Emit[int, none](in.Value())
		if in.IsDone() {
			out = powermap.Done[int, none]()
		}
		if calls.Add(1) == 1 {
			return deferred.Async(func() (powermap.Outcome[int, none], error) { return out, nil })
		}
		return deferred.Value(out)
	}, nil)

	p := step(pull.FromSlice([]int{1, 2, 3}))
	results, modes := testutil.PullN(h, p, 5)

	for i, d := range modes {
		if !d {
			t.Errorf("pull %d was immediate, want deferred", i+1)
		}
	}
	want := []string{"value(1)", "value(2)", "value(3)", "done", "done"}
	for i, r := range results {
		if r.String() != want[i] {
			t.Errorf("pull %d: got %v, want %v", i+1, r, want[i])
		}
	}
	if mode, _ := powermap.ModeOf(p); mode != powermap.ModeDeferred {
		t.Errorf("got mode %v, want %v", mode, powermap.ModeDeferred)
	}
}

func TestModeLockedAfterDeferredUpstream(t *testing.T) {
	h := testutil.T(t)

	src := testutil.NewRecorder(1, 2, 3)
	src.DeferOn = testutil.Only(1)

	_, modes := testutil.PullN(h, double()(src), 4)
	for i, d := range modes {
		if !d {
			t.Errorf("pull %d was immediate, want deferred", i+1)
		}
	}
}

func TestModeSwitchesOnLaterDeferral(t *testing.T) {
	h := testutil.T(t)

	src := testutil.NewRecorder(1, 2, 3)
	src.DeferOn = testutil.Only(2)

	_, modes := testutil.PullN(h, double()(src), 4)
	want := []bool{false, true, true, true}
	if !slices.Equal(modes, want) {
		t.Errorf("got deferred flags %v, want %v", modes, want)
	}
}

func TestOrderPreserved(t *testing.T) {
	items := []int{5, 3, 9, 1, 7, 2}
	want := []int{10, 6, 18, 2, 14, 4}

	delayed := testutil.AsyncRecorder(items...)
	delayed.Delay = time.Millisecond

	tests := []struct {
		name   string
		source pull.Puller[int]
	}{
		{"immediate", pull.FromSlice(items)},
		{"deferred", testutil.AsyncRecorder(items...)},
		{"delayed", delayed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.T(t)
			got := testutil.Drain(h, double()(tt.source))
			if !slices.Equal(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestEmitManyDrainsBeforeNextPull(t *testing.T) {
	h := testutil.T(t)
	src := testutil.NewRecorder(1, 2)
	p := repeat[int](3)(src)

	wantPulls := []int{1, 1, 1, 2, 2, 2, 3}
	var got []int
	for i, want := range wantPulls {
		r := testutil.Await(h, p.Next(h.Context()))
		if n := src.Pulls(); n != want {
			t.Errorf("after downstream pull %d: upstream pulled %d times, want %d", i+1, n, want)
		}
		if v, ok := r.Get(); ok {
			got = append(got, v)
		}
	}

	if want := []int{1, 1, 1, 2, 2, 2}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEmitManyEmptyDoesNotEndSequence(t *testing.T) {
	h := testutil.T(t)
	step := powermap.New(powermap.Sync(func(in pull.Result[int], _ none) (powermap.Outcome[int, none], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[int, none](), nil
		}
		if v%2 == 1 {
			return powermap.EmitMany[int, none]([]int{}), nil
		}
		return powermap.EmitMany[int, none]([]int{v, v}), nil
	}), nil)

	got := testutil.Drain(h, step(pull.FromSlice([]int{1, 2, 3, 5, 4})))
	if want := []int{2, 2, 4, 4}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEmitManyPayloads(t *testing.T) {
	tests := []struct {
		name     string
		payload  func(v int) any
		deferred bool
	}{
		{"slice", func(v int) any { return []int{v, v + 1} }, false},
		{"seq", func(v int) any {
			return func(yield func(int) bool) {
				_ = yield(v) && yield(v+1)
			}
		}, false},
		{"puller", func(v int) any { return pull.FromSlice([]int{v, v + 1}) }, false},
		{"deferred puller", func(v int) any { return pull.Async(pull.FromSlice([]int{v, v + 1})) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.T(t)
			step := powermap.New(powermap.Sync(func(in pull.Result[int], _ none) (powermap.Outcome[int, none], error) {
				v, ok := in.Get()
				if !ok {
					return powermap.Done[int, none](), nil
				}
				return powermap.EmitMany[int, none](tt.payload(v)), nil
			}), nil)

			p := step(pull.FromSlice([]int{10, 20}))
			first := p.Next(h.Context())
			if first.IsDeferred() != tt.deferred {
				t.Errorf("first pull deferred = %v, want %v", first.IsDeferred(), tt.deferred)
			}
			got := append([]int{testutil.Await(h, first).Value()}, testutil.Drain(h, p)...)
			if want := []int{10, 11, 20, 21}; !slices.Equal(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestLastEmitStopsPullingUpstream(t *testing.T) {
	h := testutil.T(t)
	src := testutil.NewRecorder(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	step := powermap.New(powermap.Sync(func(in pull.Result[int], n int) (powermap.Outcome[int, int], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[int, int](), nil
		}
		out := powermap.Emit[int, int](v).WithState(n + 1)
		if n+1 == 3 {
			out = out.AsLast()
		}
		return out, nil
	}), nil)

	got := testutil.Drain(h, step(src))
	if want := []int{1, 2, 3}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if n := src.Pulls(); n != 3 {
		t.Errorf("upstream pulled %d times, want 3", n)
	}
}

func TestLastEmitManyStopsAfterSubSequence(t *testing.T) {
	h := testutil.T(t)
	src := testutil.NewRecorder("x", "y", "z")

	step := powermap.New(powermap.Sync(func(in pull.Result[string], _ none) (powermap.Outcome[string, none], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[string, none](), nil
		}
		return powermap.EmitMany[string, none](strings.Split(v+v+v, "")).AsLast(), nil
	}), nil)

	got := testutil.Drain(h, step(src))
	if want := []string{"x", "x", "x"}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if n := src.Pulls(); n != 1 {
		t.Errorf("upstream pulled %d times, want 1", n)
	}
}

func TestSkipLoopStaysFlat(t *testing.T) {
	h := testutil.T(t)
	const skips = 100_000

	items := make([]int, skips+1)
	for i := range items {
		items[i] = i
	}

	step := powermap.New(powermap.Sync(func(in pull.Result[int], _ none) (powermap.Outcome[int, none], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[int, none](), nil
		}
		if v < skips {
			return powermap.Skip[int, none](), nil
		}
		return powermap.Emit[int, none](v), nil
	}), nil)

	m := step(pull.FromSlice(items)).Next(h.Context())
	if m.IsDeferred() {
		t.Fatal("got a deferred result, want immediate")
	}
	r, err := m.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Value() != skips {
		t.Errorf("got %v, want value(%d)", r, skips)
	}
}

func TestKeepEvenAndDouble(t *testing.T) {
	h := testutil.T(t)
	step := powermap.New(powermap.Sync(func(in pull.Result[int], _ none) (powermap.Outcome[int, none], error) {
		v, ok := in.Get()
		switch {
		case !ok:
			return powermap.Done[int, none](), nil
		case v%2 != 0:
			return powermap.Skip[int, none](), nil
		default:
			return powermap.Emit[int, none](v * 2), nil
		}
	}), nil)

	got := testutil.Drain(h, step(pull.FromSlice([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})))
	if want := []int{4, 8, 12, 16, 20}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeferredSourceRepeat(t *testing.T) {
	h := testutil.T(t)
	p := repeat[string](2)(testutil.AsyncRecorder("a", "b", "c"))

	first := p.Next(h.Context())
	if !first.IsDeferred() {
		t.Fatal("got an immediate first pull, want deferred")
	}
	got := append([]string{testutil.Await(h, first).Value()}, testutil.Drain(h, p)...)
	if want := []string{"a", "a", "b", "b", "c", "c"}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFlushOnUpstreamDone(t *testing.T) {
	h := testutil.T(t)
	sum := powermap.New(powermap.Sync(func(in pull.Result[int], acc int) (powermap.Outcome[int, int], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Emit[int, int](acc).AsLast(), nil
		}
		return powermap.Skip[int, int]().WithState(acc + v), nil
	}), nil)

	for _, src := range []pull.Puller[int]{
		pull.FromSlice([]int{1, 2, 3, 4}),
		testutil.AsyncRecorder(1, 2, 3, 4),
	} {
		got := testutil.Drain(h, sum(src))
		if want := []int{10}; !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestSkipOnUpstreamDoneEnds(t *testing.T) {
	h := testutil.T(t)
	step := powermap.New(powermap.Sync(func(pull.Result[int], none) (powermap.Outcome[int, none], error) {
		return powermap.Skip[int, none](), nil
	}), nil)

	got := testutil.Drain(h, step(pull.FromSlice([]int{1, 2, 3})))
	if len(got) != 0 {
		t.Errorf("got %v, want no values", got)
	}
}

func TestStateFactoryPerInstance(t *testing.T) {
	h := testutil.T(t)
	step := powermap.New(powermap.Sync(func(in pull.Result[string], seen map[string]bool) (powermap.Outcome[string, map[string]bool], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[string, map[string]bool](), nil
		}
		if seen[v] {
			return powermap.Skip[string, map[string]bool](), nil
		}
		seen[v] = true
		return powermap.Emit[string, map[string]bool](v), nil
	}), func() map[string]bool { return map[string]bool{} })

	for i := 0; i < 2; i++ {
		got := testutil.Drain(h, step(pull.FromSlice([]string{"a", "b", "a", "c", "b"})))
		if want := []string{"a", "b", "c"}; !slices.Equal(got, want) {
			t.Errorf("run %d: got %v, want %v", i+1, got, want)
		}
	}
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		outcome powermap.Outcome[int, none]
	}{
		{"mixed payload", powermap.Outcome[int, none]{Kind: powermap.KindEmit, Value: 1, Values: []int{1}}},
		{"not materializable", powermap.EmitMany[int, none](42)},
		{"nil payload", powermap.EmitMany[int, none](nil)},
		{"unknown kind", powermap.Outcome[int, none]{Kind: powermap.Kind(99)}},
		{"skip with values", powermap.Outcome[int, none]{Kind: powermap.KindSkip, Values: []int{1}}},
		{"done with values", powermap.Outcome[int, none]{Kind: powermap.KindDone, Values: []int{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.T(t)
			src := testutil.NewRecorder(1, 2)
			step := powermap.New(powermap.Sync(func(pull.Result[int], none) (powermap.Outcome[int, none], error) {
				return tt.outcome, nil
			}), nil)

			p := step(src)
			m := p.Next(h.Context())
			if m.IsDeferred() {
				t.Fatal("configuration error was deferred, want immediate")
			}
			_, err := m.Get()
			if !errors.Is(err, errors.ErrCodeConfiguration) {
				t.Fatalf("got %v, want a %s error", err, errors.ErrCodeConfiguration)
			}
			if n := src.Aborted(); n != 1 {
				t.Errorf("upstream aborted %d times, want 1", n)
			}
			if r := testutil.Await(h, p.Next(h.Context())); !r.IsDone() {
				t.Errorf("pull after failure: got %v, want done", r)
			}
		})
	}
}

func TestNilUpstream(t *testing.T) {
	h := testutil.T(t)
	err := testutil.AwaitErr(h, double()(nil).Next(h.Context()))
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("got %v, want a %s error", err, errors.ErrCodeConfiguration)
	}
}

func TestNilTransitionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New with a nil transition did not panic")
		}
	}()
	powermap.New[int, int, none](nil, nil)
}

func TestTransitionFailure(t *testing.T) {
	boom := stderrors.New("boom")

	tests := []struct {
		name   string
		source *testutil.Recorder[int]
	}{
		{"immediate", testutil.NewRecorder(1, 2, 3)},
		{"deferred", testutil.AsyncRecorder(1, 2, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.T(t)
			p := failing(boom)(tt.source)

			if got := testutil.Await(h, p.Next(h.Context())); got.Value() != 1 {
				t.Fatalf("got %v, want value(1)", got)
			}
			err := testutil.AwaitErr(h, p.Next(h.Context()))
			if !stderrors.Is(err, boom) {
				t.Errorf("got %v, want it to wrap %v", err, boom)
			}
			if !errors.Is(err, errors.ErrCodeTransitionFailed) {
				t.Errorf("got %v, want a %s error", err, errors.ErrCodeTransitionFailed)
			}

			pull.Close(h.Context(), p)
			if n := tt.source.Aborted(); n != 1 {
				t.Errorf("upstream aborted %d times, want 1", n)
			}
			if n := tt.source.Closed(); n != 0 {
				t.Errorf("upstream closed %d times, want 0", n)
			}
			if !stderrors.Is(tt.source.AbortReason(), boom) {
				t.Errorf("abort reason %v, want it to wrap %v", tt.source.AbortReason(), boom)
			}
		})
	}
}

func TestDeferredTransitionFailure(t *testing.T) {
	h := testutil.T(t)
	boom := stderrors.New("rejected")
	src := testutil.NewRecorder(1)

	step := powermap.New(func(context.Context, pull.Result[int], none) deferred.Maybe[powermap.Outcome[int, none]] {
		return deferred.Async(func() (powermap.Outcome[int, none], error) {
			return powermap.Outcome[int, none]{}, boom
		})
	}, nil)

	err := testutil.AwaitErr(h, step(src).Next(h.Context()))
	if !stderrors.Is(err, boom) {
		t.Errorf("got %v, want it to wrap %v", err, boom)
	}
	if n := src.Aborted(); n != 1 {
		t.Errorf("upstream aborted %d times, want 1", n)
	}
}

func TestTransitionPanic(t *testing.T) {
	h := testutil.T(t)
	src := testutil.NewRecorder(1)
	step := powermap.New(powermap.Sync(func(pull.Result[int], none) (powermap.Outcome[int, none], error) {
		panic("bad transition")
	}), nil)

	err := testutil.AwaitErr(h, step(src).Next(h.Context()))
	if !errors.Is(err, errors.ErrCodePanic) {
		t.Errorf("got %v, want a %s error", err, errors.ErrCodePanic)
	}
	if n := src.Aborted(); n != 1 {
		t.Errorf("upstream aborted %d times, want 1", n)
	}
}

func TestUpstreamFailureNotSignalled(t *testing.T) {
	h := testutil.T(t)
	boom := stderrors.New("source broke")

	for _, async := range []bool{false, true} {
		src := testutil.NewRecorder(1, 2, 3)
		src.FailOn, src.Err = 2, boom
		if async {
			src.DeferOn = testutil.Always
		}

		p := double()(src)
		testutil.Await(h, p.Next(h.Context()))
		err := testutil.AwaitErr(h, p.Next(h.Context()))
		if !stderrors.Is(err, boom) || errors.IsAppError(err) {
			t.Errorf("async=%v: got %v, want %v unchanged", async, err, boom)
		}
		if n := src.Aborted(); n != 0 {
			t.Errorf("async=%v: upstream aborted %d times, want 0", async, n)
		}
		if r := testutil.Await(h, p.Next(h.Context())); !r.IsDone() {
			t.Errorf("async=%v: pull after failure: got %v, want done", async, r)
		}
	}
}

func TestCloseForwardsOnce(t *testing.T) {
	h := testutil.T(t)
	src := testutil.NewRecorder(1, 2, 3)
	p := double()(src)

	testutil.Await(h, p.Next(h.Context()))
	for i := 0; i < 3; i++ {
		pull.Close(h.Context(), p)
	}
	pull.Abort(h.Context(), p, stderrors.New("late"))

	if n := src.Closed(); n != 1 {
		t.Errorf("upstream closed %d times, want 1", n)
	}
	if n := src.Aborted(); n != 0 {
		t.Errorf("upstream aborted %d times, want 0", n)
	}
	if r := testutil.Await(h, p.Next(h.Context())); !r.IsDone() {
		t.Errorf("pull after close: got %v, want done", r)
	}
	if n := src.Pulls(); n != 1 {
		t.Errorf("upstream pulled %d times, want 1", n)
	}
}

func TestAbortForwardsReason(t *testing.T) {
	h := testutil.T(t)
	src := testutil.NewRecorder(1, 2)
	reason := stderrors.New("consumer gave up")

	p := double()(src)
	pull.Abort(h.Context(), p, reason)
	pull.Abort(h.Context(), p, reason)

	if n := src.Aborted(); n != 1 {
		t.Errorf("upstream aborted %d times, want 1", n)
	}
	if src.AbortReason() != reason {
		t.Errorf("got reason %v, want %v", src.AbortReason(), reason)
	}
}

func TestCloseReachesActiveSubPuller(t *testing.T) {
	h := testutil.T(t)
	src := testutil.NewRecorder(1, 2)
	var subs []*testutil.Recorder[int]

	step := powermap.New(powermap.Sync(func(in pull.Result[int], _ none) (powermap.Outcome[int, none], error) {
		v, ok := in.Get()
		if !ok {
			return powermap.Done[int, none](), nil
		}
		sub := testutil.NewRecorder(v, v, v)
		subs = append(subs, sub)
		return powermap.EmitMany[int, none](sub), nil
	}), nil)

	p := step(src)
	testutil.Await(h, p.Next(h.Context()))
	pull.Close(h.Context(), p)

	if len(subs) != 1 {
		t.Fatalf("got %d sub-pullers, want 1", len(subs))
	}
	if n := subs[0].Closed(); n != 1 {
		t.Errorf("sub-puller closed %d times, want 1", n)
	}
	if n := src.Closed(); n != 1 {
		t.Errorf("upstream closed %d times, want 1", n)
	}
}

func TestCloseDuringDeferredPull(t *testing.T) {
	h := testutil.T(t)
	src := testutil.AsyncRecorder(1, 2, 3)
	src.Delay = 20 * time.Millisecond

	p := double()(src)
	inflight := p.Next(h.Context())
	if err := p.(pull.Closer).Close(h.Context()); err != nil {
		t.Fatalf("Close returned %v", err)
	}

	if _, err := inflight.Await(h.Context()); err != nil {
		t.Fatalf("in-flight pull failed: %v", err)
	}
	if r := testutil.Await(h, p.Next(h.Context())); !r.IsDone() {
		t.Errorf("pull after close: got %v, want done", r)
	}
	if n := src.Closed(); n != 1 {
		t.Errorf("upstream closed %d times, want 1", n)
	}
}

func TestCloseWhileDeferredPullsQueued(t *testing.T) {
	h := testutil.T(t)
	p := double()(pull.Async(pull.FromSlice([]int{1, 2, 3, 4, 5, 6, 7, 8})))

	pending := make([]deferred.Maybe[pull.Result[int]], 4)
	for i := range pending {
		pending[i] = p.Next(h.Context())
	}
	pull.Close(h.Context(), p)

	var got []int
	ended := false
	for i, m := range pending {
		r, err := m.Await(h.Context())
		if err != nil {
			t.Fatalf("pull %d failed: %v", i+1, err)
		}
		v, ok := r.Get()
		switch {
		case !ok:
			ended = true
		case ended:
			t.Errorf("pull %d: got %d after done", i+1, v)
		default:
			got = append(got, v)
		}
	}
	if want := []int{2, 4, 6, 8}[:len(got)]; !slices.Equal(got, want) {
		t.Errorf("got %v, want a prefix of [2 4 6 8]", got)
	}
	if r := testutil.Await(h, p.Next(h.Context())); !r.IsDone() {
		t.Errorf("pull after close: got %v, want done", r)
	}
}

func TestSubPullerFailureAbortsSubPuller(t *testing.T) {
	h := testutil.T(t)
	boom := stderrors.New("boom")
	src := testutil.NewRecorder(1, 2)
	sub := testutil.NewRecorder(10, 20)
	sub.FailOn, sub.Err = 2, boom

	step := powermap.New(powermap.Sync(func(r pull.Result[int], _ none) (powermap.Outcome[int, none], error) {
		if r.IsDone() {
			return powermap.Done[int, none](), nil
		}
		return powermap.EmitMany[int, none](sub), nil
	}), nil)
	p := step(src)

	if v, ok := testutil.Await(h, p.Next(h.Context())).Get(); !ok || v != 10 {
		t.Fatalf("first pull: got (%d, %v), want 10", v, ok)
	}
	if err := testutil.AwaitErr(h, p.Next(h.Context())); !stderrors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if n := sub.Aborted(); n != 1 {
		t.Errorf("sub-puller aborted %d times, want 1", n)
	}
	if n := src.Aborted(); n != 1 {
		t.Errorf("upstream aborted %d times, want 1", n)
	}
}

func TestInstanceIdentity(t *testing.T) {
	src := pull.FromSlice([]int{1})
	fn := powermap.Sync(func(pull.Result[int], none) (powermap.Outcome[int, none], error) {
		return powermap.Done[int, none](), nil
	})

	a := powermap.Apply(src, fn, nil, powermap.WithName("first"))
	b := powermap.Apply(src, fn, nil)

	if a.ID() == b.ID() {
		t.Error("two instances share an id")
	}
	if a.Name() != "first" {
		t.Errorf("got name %q, want %q", a.Name(), "first")
	}
	if b.Name() != "powermap" {
		t.Errorf("got default name %q, want %q", b.Name(), "powermap")
	}
	if _, ok := powermap.ModeOf(src); ok {
		t.Error("ModeOf reported a mode for a plain source")
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode powermap.Mode
		want string
	}{
		{powermap.ModeUndetermined, "undetermined"},
		{powermap.ModeImmediate, "immediate"},
		{powermap.ModeDeferred, "deferred"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
	if got := powermap.KindEmitMany.String(); got != "emit_many" {
		t.Errorf("got %q, want %q", got, "emit_many")
	}
}
