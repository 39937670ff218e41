// Package observability provides OpenTelemetry tracing and metrics for
// power-map instances and drain runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("powermap"))
//	metrics.RecordPull(ctx, "double", "immediate")
//
// A nil *Metrics is accepted everywhere and records nothing.
package observability
