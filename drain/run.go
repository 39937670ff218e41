package drain

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/observability"
)

// Helper names used in logs, metrics and span attributes.
const (
	helperCollect     = "collect"
	helperCollectMap  = "collect_map"
	helperCollectText = "collect_text"
	helperForEach     = "for_each"
)

// run tracks the span, run id and logger of one drain call.
type run struct {
	ctx  context.Context
	rc   *observability.RunContext
	span trace.Span
	log  *logger.Logger
}

func begin(ctx context.Context, helper, spanName string, o options) *run {
	rc := observability.NewRunContext(helper, uuid.NewString(), o.metrics)
	ctx, span := rc.StartSpan(ctx, spanName)
	ctx = logger.ContextWithRunID(ctx, rc.RunID)
	return &run{
		ctx:  ctx,
		rc:   rc,
		span: span,
		log:  o.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldOperation, helper)),
	}
}

func (r *run) end(err error, count int) {
	r.rc.End(r.ctx, r.span, err)
	fields := logger.Fields(
		logger.FieldCount, count,
		logger.FieldDuration, r.rc.Duration().Milliseconds(),
	)
	if err != nil {
		r.log.WithError(err).Debug("drain failed", fields)
		return
	}
	r.log.Debug("drain finished", fields)
}
