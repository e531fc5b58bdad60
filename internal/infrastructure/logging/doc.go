// Package logging provides structured logging for Gray Logic Home.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the session core, the broker
// bridge and the HTTP surface.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("broker connected", "endpoint", endpoint)
//	logger.Error("publish failed", "error", err)
//
// Never log broker passwords or WiFi secrets.
package logging
