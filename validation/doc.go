// Package validation validates configuration and options.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Both report INVALID_INPUT
// errors whose "fields" detail lists every offending field.
//
// # Struct Tag Validation
//
//	type DrainConfig struct {
//	    Concurrency int `mapstructure:"concurrency" validate:"min=1,max=1024"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	err := validation.New().
//	    Range("concurrency", n, 1, 1024).
//	    OneOf("split", split, []string{"words", "chars"}).
//	    Validate()
package validation
