// Package http provides the REST surface of podshell.
//
// This package implements the HTTP endpoints using the Gin framework: health,
// cluster contexts, pod listing and terminal session management. Interactive
// traffic (input, resize, output) goes through the WebSocket stream instead.
//
// Endpoints:
//   - Health: / and /health
//   - Contexts: GET /contexts, PUT /contexts/current
//   - Pods: GET /pods?namespace=
//   - Sessions: GET/POST /sessions, GET/DELETE /sessions/:namespace/:pod
//   - Scrollback: GET /sessions/:namespace/:pod/scrollback (gzip when accepted)
//
// Features:
//   - Errors rendered as {"error": {"code", "subject", "message"}}
//   - Status codes derived from the error code
//   - Kubernetes name validation before any cluster or exec call
//
// Example Usage:
//
//	handlers := http.NewHandlers(appManager, metrics)
//	router.GET("/health", handlers.Health)
//	router.POST("/sessions", handlers.CreateSession)
package http
