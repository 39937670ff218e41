// Package logger provides structured logging for powermap using zerolog.
//
// It supports JSON and console output, level configuration from config
// files or the environment, and component-scoped loggers. The engine and the
// drain helpers log through component loggers obtained from Get, so a
// program can silence or redirect them by registering its own.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.Get("drain")
//	log.Warn("suppressed handler failure", logger.Fields(logger.FieldRunID, id))
package logger
