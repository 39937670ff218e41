package drain

import (
	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/observability"
	"github.com/kbukum/powermap/validation"
)

// MaxConcurrency is the largest accepted in-flight handler limit.
const MaxConcurrency = 1024

type options struct {
	log         *logger.Logger
	metrics     *observability.Metrics
	concurrency int
	separator   string
	err         error
}

// Option configures a drain run.
type Option func(*options)

// WithConcurrency caps the number of handlers ForEach keeps in flight.
// It must be between 1 and MaxConcurrency. The default is 1.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if err := validation.New().Range("concurrency", n, 1, MaxConcurrency).Validate(); err != nil {
			o.err = err
			return
		}
		o.concurrency = n
	}
}

// WithSeparator sets the text CollectText writes between values.
func WithSeparator(sep string) Option {
	return func(o *options) { o.separator = sep }
}

// WithLogger sets the logger. The default is the "drain" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records run durations, in-flight handlers and handler
// failures on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) options {
	o := options{concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("drain")
	}
	return o
}
