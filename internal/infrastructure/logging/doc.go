// Package logging provides structured logging for Inbotiq Core.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// LOG_LEVEL and LOG_FORMAT override the file values.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("server listening", "port", 5001)
//	logger.Error("store unreachable", "error", err)
//
// Never log passwords, password hashes or bearer tokens. Log a user id or a
// token id (jti) instead.
package logging
