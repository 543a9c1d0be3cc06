// Package main is the entry point for the podshell server.
//
// podshell opens interactive shells in Kubernetes pods through
// "kubectl exec" running on a pseudo-terminal, and streams them to browser
// terminals over a WebSocket.
//
// Architecture:
//
//	Browser (xterm) → WebSocket/REST → Session Manager → kubectl exec (PTY)
//	                                 → Cluster Contexts (kubeconfig, client-go)
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -kubeconfig ~/.kube/config
//
//	# Development mode (colored logs)
//	./server -dev -log-level debug
//
// Signals:
//   - SIGINT, SIGTERM: Close every terminal, then stop
package main
