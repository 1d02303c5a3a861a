package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for a tiabridge run.
// A single-shot CLI has nobody to scrape it, so metrics are written to a
// textfile for the node exporter's textfile collector instead of served.
type Metrics struct {
	config MetricsConfig

	sessions        *prometheus.CounterVec
	sessionReleases *prometheus.CounterVec
	projectOpens    *prometheus.CounterVec
	groupsVisited   prometheus.Counter
	unitsVisited    prometheus.Counter
	unitsListed     *prometheus.CounterVec
	errorsByClass   *prometheus.CounterVec
	runDuration     prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of engineering sessions started",
			},
			[]string{"mode", "result"},
		),
		sessionReleases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_releases_total",
				Help:      "Total number of engineering sessions released",
			},
			[]string{"result"},
		),
		projectOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "project_opens_total",
				Help:      "Total number of project open attempts",
			},
			[]string{"result"},
		),
		groupsVisited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "block_groups_visited_total",
				Help:      "Total number of block groups visited",
			},
		),
		unitsVisited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blocks_visited_total",
				Help:      "Total number of blocks visited",
			},
		),
		unitsListed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blocks_listed_total",
				Help:      "Total number of blocks emitted by listings",
			},
			[]string{"category"},
		),
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of the run in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
	}

	registry.MustRegister(
		m.sessions,
		m.sessionReleases,
		m.projectOpens,
		m.groupsVisited,
		m.unitsVisited,
		m.unitsListed,
		m.errorsByClass,
		m.runDuration,
	)

	return m
}

// RecordSession records a session start attempt.
func (m *Metrics) RecordSession(mode, result string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(mode, result).Inc()
}

// RecordSessionRelease records a session release.
func (m *Metrics) RecordSessionRelease(result string) {
	if m == nil {
		return
	}
	m.sessionReleases.WithLabelValues(result).Inc()
}

// RecordProjectOpen records a project open attempt.
func (m *Metrics) RecordProjectOpen(result string) {
	if m == nil {
		return
	}
	m.projectOpens.WithLabelValues(result).Inc()
}

// RecordWalk records the number of groups and blocks a traversal visited.
func (m *Metrics) RecordWalk(groups, units int) {
	if m == nil {
		return
	}
	m.groupsVisited.Add(float64(groups))
	m.unitsVisited.Add(float64(units))
}

// RecordListed records the number of blocks a listing emitted.
func (m *Metrics) RecordListed(category string, count int) {
	if m == nil {
		return
	}
	m.unitsListed.WithLabelValues(category).Add(float64(count))
}

// RecordError records the class of the error that ended a run.
func (m *Metrics) RecordError(class string) {
	if m == nil {
		return
	}
	m.errorsByClass.WithLabelValues(class).Inc()
}

// ObserveRun records the run duration.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the collected metrics to the configured file.
// It is a no-op when no file is configured.
func (m *Metrics) WriteTextfile() error {
	if m == nil || m.config.File == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.config.File, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
