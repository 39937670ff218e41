package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/powermap/deferred"
	"github.com/kbukum/powermap/pull"
)

// DefaultTimeout bounds every wait performed by the helpers.
const DefaultTimeout = 5 * time.Second

// THelper binds a testing.TB to the context used for pulls.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T wraps a testing.TB. The context is cancelled when the test ends or
// after DefaultTimeout.
//
//	h := testutil.T(t)
//	got := testutil.Drain(h, p)
func T(t testing.TB) *THelper {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	t.Cleanup(cancel)
	return &THelper{t: t, ctx: ctx}
}

// WithContext sets a custom context for the helper.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Context returns the helper's context.
func (h *THelper) Context() context.Context { return h.ctx }

// Await waits for m and fails the test on error.
func Await[T any](h *THelper, m deferred.Maybe[T]) T {
	h.t.Helper()
	v, err := m.Await(h.ctx)
	if err != nil {
		h.t.Fatalf("unexpected error: %v", err)
	}
	return v
}

// AwaitErr waits for m and returns its error, failing the test if m
// succeeds.
func AwaitErr[T any](h *THelper, m deferred.Maybe[T]) error {
	h.t.Helper()
	_, err := m.Await(h.ctx)
	if err == nil {
		h.t.Fatal("expected an error, got none")
	}
	return err
}

// Drain pulls p until done, awaiting deferred results, and returns the
// values. It fails the test on error.
func Drain[T any](h *THelper, p pull.Puller[T]) []T {
	h.t.Helper()
	out := make([]T, 0)
	for {
		r, err := p.Next(h.ctx).Await(h.ctx)
		if err != nil {
			h.t.Fatalf("pull failed after %d values: %v", len(out), err)
		}
		v, ok := r.Get()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// PullN pulls p n times, recording for each pull whether it was deferred.
func PullN[T any](h *THelper, p pull.Puller[T], n int) ([]pull.Result[T], []bool) {
	h.t.Helper()
	results := make([]pull.Result[T], 0, n)
	modes := make([]bool, 0, n)
	for i := 0; i < n; i++ {
		m := p.Next(h.ctx)
		modes = append(modes, m.IsDeferred())
		r, err := m.Await(h.ctx)
		if err != nil {
			h.t.Fatalf("pull %d failed: %v", i+1, err)
		}
		results = append(results, r)
	}
	return results, modes
}
