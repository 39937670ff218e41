package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/version"
)

// ServiceConfig contains the fields every powermap program needs.
// Programs extend it by embedding it in their own config structs.
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Source SourceConfig `yaml:"source" mapstructure:"source"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

var environments = []string{"development", "staging", "production"}

// ApplyDefaults applies default values to the base configuration.
// Embedding structs should call it first from their own ApplyDefaults.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultServiceName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
