package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Run status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RunContext holds observability context for one drain run.
type RunContext struct {
	Helper    string
	RunID     string
	StartTime time.Time
	Metrics   *Metrics
}

// NewRunContext creates a run context. If metrics is nil, metric recording
// is silently skipped.
func NewRunContext(helper, runID string, metrics *Metrics) *RunContext {
	return &RunContext{
		Helper:    helper,
		RunID:     runID,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

// runContextKey is the context key for RunContext.
type runContextKey struct{}

// WithRunContext stores a RunContext in the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// StartSpan starts the run's span and stores the run in the returned
// context.
func (rc *RunContext) StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrHelper, rc.Helper),
		attribute.String(AttrRunID, rc.RunID),
	)
	return WithRunContext(ctx, rc), span
}

// End ends the span and records the run duration.
func (rc *RunContext) End(ctx context.Context, span trace.Span, err error) {
	duration := time.Since(rc.StartTime)
	status := StatusOK

	if err != nil {
		status = StatusError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	rc.Metrics.RecordDrain(ctx, rc.Helper, status, duration)
}

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
