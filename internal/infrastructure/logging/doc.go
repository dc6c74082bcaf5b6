// Package logging provides structured logging for the Gray Logic Caséta bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("bridge connected", "host", host)
//	logger.Error("failed to connect", "error", err)
//
// # Security
//
// Never log key material. Certificate and key paths are fine to log; their
// contents are not.
package logging
