// Package errors provides the structured error type shared by the engine,
// the drain helpers and the CLI. Every failure carries a machine-readable
// code and keeps the error it wraps reachable through Unwrap.
package errors
