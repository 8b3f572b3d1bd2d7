// Package logging provides structured logging for the scratch2 bridge.
//
// It wraps log/slog so every component logs the same way: JSON for
// production, text for development, with service and version fields on
// every entry.
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
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("mqtt").Info("connected", "broker", url)
//
// Never log broker passwords or JWT secrets.
package logging
