// Package logging provides structured logging for Gray Logic Edge.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler, level and default fields.
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
//	sagaLog := logger.With("component", "provisioning")
//	sagaLog.Warn("compensation failed", "step", "delete_thing", "error", err)
//
// # Security
//
// Never log credentials, principal private keys or InfluxDB tokens.
package logging
