package cli

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/powermap/config"
	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/observability"
)

// setupTelemetry starts OTLP export when the config enables it. The
// returned metrics are nil when telemetry is off; every recorder accepts a
// nil receiver.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (*observability.Metrics, func(context.Context), error) {
	noop := func(context.Context) {}
	if !cfg.Telemetry.Enabled {
		return nil, noop, nil
	}

	tracerCfg := cfg.TracerConfig()
	tp, err := observability.InitTracer(ctx, &tracerCfg)
	if err != nil {
		return nil, noop, err
	}
	meterCfg := cfg.MeterConfig()
	mp, err := observability.InitMeter(ctx, &meterCfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, noop, err
	}
	metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
	if err != nil {
		_ = mp.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
		return nil, noop, err
	}

	log.Debug("telemetry enabled", logger.Fields("endpoint", cfg.Telemetry.Endpoint))
	return metrics, func(ctx context.Context) {
		if err := stderrors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx)); err != nil {
			log.Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}, nil
}
