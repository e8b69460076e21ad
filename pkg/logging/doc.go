// Package logging provides the structured logging system for the OAuth
// broker, built on Go's standard slog package.
//
// All log entries carry a subsystem identifier so that logs from the
// different broker components (OAuth, TokenStore, Config, HTTPServer)
// can be filtered by log aggregation systems:
//
//	logging.Init(logging.LevelInfo, os.Stdout)
//
//	logging.Info("OAuth", "registered provider %s", name)
//	logging.Error("TokenStore", err, "failed to persist token")
//
// Init also bridges the controller-runtime logger to the same slog
// handler, so Kubernetes client operations (used by the secret-backed
// token store) log through the broker's logging infrastructure without
// warnings about uninitialized loggers.
//
// The package is safe for concurrent use from multiple goroutines.
package logging
