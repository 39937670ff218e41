package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/powermap/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricPulls           = "powermap.pulls"
	MetricEmitted         = "powermap.emitted"
	MetricFailures        = "powermap.failures"
	MetricSignals         = "powermap.signals"
	MetricInFlight        = "drain.inflight"
	MetricHandlerFailures = "drain.handler_failures"
	MetricDrainDuration   = "drain.duration"
)

// Metrics holds the instruments recorded by power-map instances and drain
// helpers. A nil *Metrics is valid and records nothing.
type Metrics struct {
	pulls           metric.Int64Counter
	emitted         metric.Int64Counter
	failures        metric.Int64Counter
	signals         metric.Int64Counter
	inFlight        metric.Int64UpDownCounter
	handlerFailures metric.Int64Counter
	drainDuration   metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	pulls, err := meter.Int64Counter(MetricPulls,
		metric.WithDescription("Pulls served by power-map instances"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricPulls, err)
	}

	emitted, err := meter.Int64Counter(MetricEmitted,
		metric.WithDescription("Values emitted by power-map instances"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricEmitted, err)
	}

	failures, err := meter.Int64Counter(MetricFailures,
		metric.WithDescription("Failures raised by power-map instances, by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricFailures, err)
	}

	signals, err := meter.Int64Counter(MetricSignals,
		metric.WithDescription("Close and abort signals forwarded upstream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricSignals, err)
	}

	inFlight, err := meter.Int64UpDownCounter(MetricInFlight,
		metric.WithDescription("Handler invocations currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricInFlight, err)
	}

	handlerFailures, err := meter.Int64Counter(MetricHandlerFailures,
		metric.WithDescription("Handler invocations that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricHandlerFailures, err)
	}

	drainDuration, err := meter.Float64Histogram(MetricDrainDuration,
		metric.WithDescription("Duration of drain runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDrainDuration, err)
	}

	return &Metrics{
		pulls:           pulls,
		emitted:         emitted,
		failures:        failures,
		signals:         signals,
		inFlight:        inFlight,
		handlerFailures: handlerFailures,
		drainDuration:   drainDuration,
	}, nil
}

// RecordPull counts one pull served by step in the given mode.
func (m *Metrics) RecordPull(ctx context.Context, step, mode string) {
	if m == nil {
		return
	}
	m.pulls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStep, step),
		attribute.String(AttrMode, mode),
	))
}

// RecordEmit counts one value emitted by step.
func (m *Metrics) RecordEmit(ctx context.Context, step string) {
	if m == nil {
		return
	}
	m.emitted.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStep, step)))
}

// RecordFailure counts a failure of step. kind is the error code.
func (m *Metrics) RecordFailure(ctx context.Context, step, kind string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStep, step),
		attribute.String(AttrKind, kind),
	))
}

// RecordSignal counts a close or abort forwarded by step.
func (m *Metrics) RecordSignal(ctx context.Context, step, signal string) {
	if m == nil {
		return
	}
	m.signals.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStep, step),
		attribute.String(AttrSignal, signal),
	))
}

// AddInFlight adjusts the number of running handler invocations.
func (m *Metrics) AddInFlight(ctx context.Context, helper string, delta int64) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, delta, metric.WithAttributes(attribute.String(AttrHelper, helper)))
}

// RecordHandlerFailure counts a failed handler invocation.
func (m *Metrics) RecordHandlerFailure(ctx context.Context, helper string) {
	if m == nil {
		return
	}
	m.handlerFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrHelper, helper)))
}

// RecordDrain records a completed drain run.
func (m *Metrics) RecordDrain(ctx context.Context, helper, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.drainDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrHelper, helper),
		attribute.String(AttrStatus, status),
	))
}
