// Package middleware provides the HTTP middleware stack for podshell.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting
//   - RequestID: X-Request-ID propagation (uuid when absent)
//   - AccessLog: One zap line per request
//
// Rate Limiting:
//   - Per-IP tracking with idle client cleanup
//   - Token bucket algorithm
//   - Configurable RPS and burst capacity
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.AccessLog(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins...)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
