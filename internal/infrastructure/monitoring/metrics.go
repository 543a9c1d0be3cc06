package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can take it as an optional dependency.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsClosed  *prometheus.CounterVec
	SpawnErrors     prometheus.Counter
	TerminalBytes   *prometheus.CounterVec

	// Cluster metrics
	PodListCalls  *prometheus.CounterVec
	ContextSwitch *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the JSON health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON API
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveConnections int64   `json:"active_connections"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podshell_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "podshell_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "podshell_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "podshell_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "podshell_sessions_created_total",
				Help: "Total number of sessions whose process started",
			},
		),
		SessionsClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podshell_sessions_closed_total",
				Help: "Total number of sessions that ended, by reason",
			},
			[]string{"reason"},
		),
		SpawnErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "podshell_spawn_errors_total",
				Help: "Total number of exec processes that failed to start",
			},
		),
		TerminalBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podshell_terminal_bytes_total",
				Help: "Bytes moved through terminal sessions",
			},
			[]string{"direction"},
		),

		PodListCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podshell_pod_list_calls_total",
				Help: "Total number of pod list calls",
			},
			[]string{"status"},
		),
		ContextSwitch: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podshell_context_switches_total",
				Help: "Total number of context switch attempts",
			},
			[]string{"status"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "podshell_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "podshell_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "podshell_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SessionStarted records a session whose process is now running
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()

	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionEnded records a session exit. reason is "closed" or "exited".
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.SessionsClosed.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()

	m.mu.Lock()
	m.snapshot.ActiveSessions--
	m.mu.Unlock()
}

// IncSpawnErrors counts a failed process start
func (m *Metrics) IncSpawnErrors() {
	if m == nil {
		return
	}
	m.SpawnErrors.Inc()
}

// AddTerminalBytes counts bytes written to ("in") or read from ("out") sessions
func (m *Metrics) AddTerminalBytes(direction string, n int) {
	if m == nil {
		return
	}
	m.TerminalBytes.WithLabelValues(direction).Add(float64(n))
}

// RecordPodList counts a pod list call by outcome
func (m *Metrics) RecordPodList(err error) {
	if m == nil {
		return
	}
	m.PodListCalls.WithLabelValues(status(err)).Inc()
}

// RecordContextSwitch counts a context switch attempt by outcome
func (m *Metrics) RecordContextSwitch(err error) {
	if m == nil {
		return
	}
	m.ContextSwitch.WithLabelValues(status(err)).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values for the JSON API
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
