package monitoring

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/sandbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Workspace metrics
	WorkspacesActive prometheus.Gauge
	WorkspacesOpened prometheus.Counter
	WorkspacesClosed *prometheus.CounterVec

	// Sandbox metrics
	SandboxLoads        *prometheus.CounterVec
	SandboxLoadDuration prometheus.Histogram
	SandboxRuns         *prometheus.CounterVec
	SandboxRunDuration  prometheus.Histogram

	// Layout metrics
	LayoutOperations *prometheus.CounterVec

	// Practice backend metrics
	BackendCalls    *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveWorkspaces  int64   `json:"active_workspaces"`
	ActiveConnections int64   `json:"active_connections"`
	TotalRuns         int64   `json:"total_runs"`
	FailedLoads       int64   `json:"failed_loads"`
	AvgRequestSeconds float64 `json:"avg_request_seconds"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector registered with the default registry
func NewMetrics() *Metrics {
	m := NewMetricsWithRegistry(prometheus.DefaultRegisterer)

	// Start uptime updater
	go m.RunUptime(context.Background())

	return m
}

// NewMetricsWithRegistry creates a metrics collector on reg. Tests pass a
// fresh prometheus.NewRegistry() so collectors do not collide.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeshin_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeshin_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeshin_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeshin_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Workspace metrics
		WorkspacesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codeshin_workspaces_active",
				Help: "Number of open workspaces",
			},
		),
		WorkspacesOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codeshin_workspaces_opened_total",
				Help: "Total number of workspaces opened",
			},
		),
		WorkspacesClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeshin_workspaces_closed_total",
				Help: "Total number of workspaces closed",
			},
			[]string{"reason"},
		),

		// Sandbox metrics
		SandboxLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeshin_sandbox_loads_total",
				Help: "Sandbox runtime loads by result",
			},
			[]string{"result"},
		),
		SandboxLoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "codeshin_sandbox_load_duration_seconds",
				Help:    "Time to load the sandbox runtime",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		SandboxRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeshin_sandbox_runs_total",
				Help: "Sandbox runs by outcome",
			},
			[]string{"outcome"},
		),
		SandboxRunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "codeshin_sandbox_run_duration_seconds",
				Help:    "Sandbox run duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5, 5},
			},
		),

		// Layout metrics
		LayoutOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeshin_layout_operations_total",
				Help: "Layout operations by kind and result",
			},
			[]string{"operation", "result"},
		),

		// Practice backend metrics
		BackendCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeshin_backend_calls_total",
				Help: "Calls to the practice backend",
			},
			[]string{"endpoint", "status"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeshin_backend_duration_seconds",
				Help:    "Practice backend call duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codeshin_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeshin_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codeshin_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RunUptime updates the uptime gauge every second until ctx is done.
func (m *Metrics) RunUptime(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// LoadFinished records a sandbox runtime load. It makes Metrics usable as a
// sandbox.Observer.
func (m *Metrics) LoadFinished(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	switch {
	case errors.Is(err, sandbox.ErrClosed):
		result = "discarded"
	case err != nil:
		result = "failure"
	}
	m.SandboxLoads.WithLabelValues(result).Inc()
	m.SandboxLoadDuration.Observe(duration.Seconds())

	if result == "failure" {
		m.mu.Lock()
		m.snapshot.FailedLoads++
		m.mu.Unlock()
	}
}

// RunFinished records one sandbox run.
func (m *Metrics) RunFinished(duration time.Duration, kind sandbox.ErrorKind) {
	if m == nil {
		return
	}
	outcome := "ok"
	if kind != "" {
		outcome = string(kind)
	}
	m.SandboxRuns.WithLabelValues(outcome).Inc()
	m.SandboxRunDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRuns++
	m.mu.Unlock()
}

// RecordLayoutOperation counts a layout mutation.
func (m *Metrics) RecordLayoutOperation(operation string, applied bool) {
	if m == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "ignored"
	}
	m.LayoutOperations.WithLabelValues(operation, result).Inc()
}

// RecordBackendCall records a practice backend request
func (m *Metrics) RecordBackendCall(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(endpoint, status).Inc()
	m.BackendDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// WorkspaceOpened updates the open workspace metrics
func (m *Metrics) WorkspaceOpened(active int) {
	if m == nil {
		return
	}
	m.WorkspacesOpened.Inc()
	m.setWorkspacesActive(active)
}

// WorkspaceClosed updates the closed workspace metrics
func (m *Metrics) WorkspaceClosed(reason string, active int) {
	if m == nil {
		return
	}
	m.WorkspacesClosed.WithLabelValues(reason).Inc()
	m.setWorkspacesActive(active)
}

func (m *Metrics) setWorkspacesActive(count int) {
	m.WorkspacesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveWorkspaces = int64(count)
	m.mu.Unlock()
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
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	if snap.TotalRequests > 0 {
		snap.AvgRequestSeconds = snap.totalDuration / float64(snap.TotalRequests)
	}
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
