package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. It doubles as the kernel's event
// observer, so syscall, fault, and scheduling counters come straight from
// the trusted core.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Kernel metrics
	SyscallsTotal    *prometheus.CounterVec
	SyscallErrors    *prometheus.CounterVec
	ContextSwitches  prometheus.Counter
	Faults           *prometheus.CounterVec
	ProcessesSpawned prometheus.Counter
	ProcessesExited  prometheus.Counter
	ProcessesActive  prometheus.Gauge

	// Memory metrics
	FramesFree prometheus.Gauge
	FramesUsed prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
}

// NewMetrics creates a metrics collector on its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	startTime := time.Now()

	m := &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kerneld_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kerneld_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SyscallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kerneld_syscalls_total",
				Help: "Total number of syscalls executed",
			},
			[]string{"op"},
		),
		SyscallErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kerneld_syscall_errors_total",
				Help: "Total number of syscalls that returned an error",
			},
			[]string{"op"},
		),
		ContextSwitches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kerneld_context_switches_total",
				Help: "Total number of context switches",
			},
		),
		Faults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kerneld_faults_total",
				Help: "Total number of user faults taken",
			},
			[]string{"kind"},
		),
		ProcessesSpawned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kerneld_processes_spawned_total",
				Help: "Total number of processes spawned",
			},
		),
		ProcessesExited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kerneld_processes_exited_total",
				Help: "Total number of processes exited",
			},
		),
		ProcessesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kerneld_processes_active",
				Help: "Number of live processes",
			},
		),

		FramesFree: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kerneld_frames_free",
				Help: "Free physical frames",
			},
		),
		FramesUsed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kerneld_frames_used",
				Help: "Allocated physical frames",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kerneld_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "kerneld_uptime_seconds",
			Help: "Daemon uptime in seconds",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)

	return m
}

// Registry exposes the backing registry for the metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SyscallExecuted records one completed syscall.
func (m *Metrics) SyscallExecuted(op string, ret int64) {
	m.SyscallsTotal.WithLabelValues(op).Inc()
	if ret < 0 {
		m.SyscallErrors.WithLabelValues(op).Inc()
	}
}

// ContextSwitch records one context switch.
func (m *Metrics) ContextSwitch() {
	m.ContextSwitches.Inc()
}

// FaultTaken records one user fault.
func (m *Metrics) FaultTaken(kind string) {
	m.Faults.WithLabelValues(kind).Inc()
}

// ProcessSpawned records one process creation.
func (m *Metrics) ProcessSpawned() {
	m.ProcessesSpawned.Inc()
	m.ProcessesActive.Inc()
}

// ProcessExited records one process exit.
func (m *Metrics) ProcessExited() {
	m.ProcessesExited.Inc()
	m.ProcessesActive.Dec()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetFrames updates the physical memory gauges.
func (m *Metrics) SetFrames(free, used int) {
	m.FramesFree.Set(float64(free))
	m.FramesUsed.Set(float64(used))
}

// IncWSConnections increments WebSocket connections.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
