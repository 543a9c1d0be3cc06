// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components take a named child logger so every line carries its origin:
//
//	logger := logging.NewDefault()
//	sessions := logger.Component("session")
//	sessions.Info("terminal created", zap.String("session_id", "default/pod-a"))
package logging
