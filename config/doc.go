// Package config provides configuration loading and validation for
// powermap programs.
//
// It uses Viper to load configuration from a config.yml file, a .env file
// and environment variables, then applies defaults and validates the
// result with struct tags.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	lines, err := drain.Collect(ctx, src, cfg.DrainOptions()...).Await(ctx)
//
// Environment variables override file values using the POWERMAP_ prefix
// with underscore-separated paths (e.g., POWERMAP_DRAIN_CONCURRENCY).
package config
