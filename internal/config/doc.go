// Package config provides 12-factor configuration management for podshell.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, CORS origins)
//   - Kube: kubeconfig location, initial context selection, default namespace
//   - Terminal: exec command, default shell, scrollback and shutdown bounds
//   - Logging: Log level and output format
//   - RateLimit: Per-IP HTTP limits and per-connection input limits
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, ALLOWED_ORIGINS, SHUTDOWN_TIMEOUT
//   - KUBE_CONFIG_PATH, KUBE_AUTOSELECT, KUBE_DEFAULT_NAMESPACE
//   - TERMINAL_COMMAND, TERMINAL_SHELL, TERMINAL_WORKDIR,
//     TERMINAL_SCROLLBACK_BYTES, TERMINAL_SHUTDOWN_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED,
//     RATE_LIMIT_INPUT_RPS, RATE_LIMIT_INPUT_BURST
package config
