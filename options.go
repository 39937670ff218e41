package powermap

import (
	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/observability"
)

const defaultName = "powermap"

type options struct {
	name    string
	log     *logger.Logger
	metrics *observability.Metrics
}

// Option configures an instance.
type Option func(*options)

// WithName names the step in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the logger. The default is the "powermap" component
// logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records pulls, emissions, failures and signals on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) options {
	o := options{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get(defaultName)
	}
	return o
}
