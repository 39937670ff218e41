package config

import (
	"time"

	"github.com/kbukum/powermap/drain"
	"github.com/kbukum/powermap/observability"
	"github.com/kbukum/powermap/validation"
)

// DefaultServiceName names the configuration files and environment prefix
// searched by Load.
const DefaultServiceName = "powermap"

// Config is the configuration of a powermap program.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Drain         DrainConfig     `yaml:"drain" mapstructure:"drain"`
	Telemetry     TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// DrainConfig holds defaults for the drain helpers.
type DrainConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency" validate:"min=1,max=1024"`
	Separator   string `yaml:"separator" mapstructure:"separator"`
}

// TelemetryConfig controls OpenTelemetry export. Nothing is exported unless
// Enabled is set.
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gte=0"`
}

// ApplyDefaults fills in unset values.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Drain.Concurrency == 0 {
		c.Drain.Concurrency = 1
	}
	if c.Drain.Separator == "" {
		c.Drain.Separator = "\n"
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	if c.Telemetry.MetricInterval == 0 {
		c.Telemetry.MetricInterval = 15 * time.Second
	}
}

// Validate checks the base fields and then the struct tags.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}

// DrainOptions converts the drain section into drain options.
func (c *Config) DrainOptions() []drain.Option {
	return []drain.Option{
		drain.WithConcurrency(c.Drain.Concurrency),
		drain.WithSeparator(c.Drain.Separator),
	}
}

// TracerConfig derives the tracer settings from the configuration.
func (c *Config) TracerConfig() observability.TracerConfig {
	return observability.TracerConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// MeterConfig derives the meter settings from the configuration.
func (c *Config) MeterConfig() observability.MeterConfig {
	return observability.MeterConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		Interval:       c.Telemetry.MetricInterval,
	}
}

// Load reads the configuration from the usual config.yml and .env
// locations plus POWERMAP_* environment variables, applies defaults and
// validates the result.
func Load(opts ...LoaderOption) (*Config, error) {
	var cfg Config
	opts = append([]LoaderOption{WithEnvPrefix(DefaultServiceName)}, opts...)
	if err := LoadConfig(DefaultServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
