// Package server provides HTTP server setup and initialization for podshell.
//
// This package orchestrates all components:
//   - Kubeconfig loading and the cluster context provider
//   - PTY spawner, session manager and event bus
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, request id, access log, metrics, CORS, rate limiting)
//   - WebSocket event channel and Prometheus /metrics
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Load kubeconfig; select the initial context when enabled
//  4. Setup HTTP routes and middleware
//  5. Start HTTP server
//  6. On shutdown: kill every terminal, flush exit events, stop HTTP
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, logger)
//	go srv.Run()
//	defer srv.Shutdown(ctx)
package server
