/*
Package monitoring provides Prometheus metrics for the service.

# Overview

Collectors are registered on an injected prometheus.Registerer so tests can
build independent instances. A nil *Metrics records nothing.

# Metrics

- HTTP requests (count, latency, response size) keyed by route template
- Terminal sessions (active, created, closed by reason, spawn errors, bytes)
- Cluster calls (pod listing, context switches)
- WebSocket connections and messages by direction and type
- Uptime

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
