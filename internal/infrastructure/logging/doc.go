// Package logging provides structured logging for robotctl.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stderr, stdout
//
// Output defaults to stderr. When robotctl serves MCP over stdio, stdout
// belongs to the protocol and must never receive log lines.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("tool call", "tool", "set_cleaning", "code", 0)
//	logger.Error("failed to connect", "error", err)
//
// # Security
//
// Never log the upstream API key, JWT secrets, or bearer tokens.
package logging
