package parser

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/blueprint/errors"
	"github.com/c360/blueprint/metric"
)

// parserMetrics holds Prometheus metrics for parse engine operations.
type parserMetrics struct {
	parses             *prometheus.CounterVec // By status (success/failure)
	invocations        *prometheus.CounterVec // By namespace, operation and status
	failures           *prometheus.CounterVec // By failure kind
	skippedDecorations *prometheus.CounterVec // By namespace
	parseDuration      prometheus.Histogram   // Whole-session duration
	activeParses       prometheus.Gauge       // Sessions currently running
}

// newParserMetrics creates and registers parse engine metrics with the
// provided registry.
func newParserMetrics(registry *metric.MetricsRegistry) (*parserMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &parserMetrics{
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Subsystem: "parser",
			Name:      "parses_total",
			Help:      "Total number of document parse sessions",
		}, []string{"status"}),

		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Subsystem: "parser",
			Name:      "handler_invocations_total",
			Help:      "Total number of namespace handler invocations",
		}, []string{"namespace", "operation", "status"}),

		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Subsystem: "parser",
			Name:      "failures_total",
			Help:      "Total number of parse failures by kind",
		}, []string{"kind"}),

		skippedDecorations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Subsystem: "parser",
			Name:      "decorations_skipped_total",
			Help:      "Total number of decorations skipped by the incompatibility policy",
		}, []string{"namespace"}),

		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blueprint",
			Subsystem: "parser",
			Name:      "parse_duration_seconds",
			Help:      "Document parse session duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),

		activeParses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blueprint",
			Subsystem: "parser",
			Name:      "active_parses",
			Help:      "Number of parse sessions currently running",
		}),
	}

	if err := registry.Register("parser", "parses", m.parses); err != nil {
		return nil, err
	}
	if err := registry.Register("parser", "handler_invocations", m.invocations); err != nil {
		return nil, err
	}
	if err := registry.Register("parser", "failures", m.failures); err != nil {
		return nil, err
	}
	if err := registry.Register("parser", "decorations_skipped", m.skippedDecorations); err != nil {
		return nil, err
	}
	if err := registry.Register("parser", "parse_duration", m.parseDuration); err != nil {
		return nil, err
	}
	if err := registry.Register("parser", "active_parses", m.activeParses); err != nil {
		return nil, err
	}

	return m, nil
}

// startSession marks a session as running and returns its start time.
func (m *parserMetrics) startSession() time.Time {
	if m == nil {
		return time.Time{}
	}
	m.activeParses.Inc()
	return time.Now()
}

// endSession records the session outcome and duration. Failure kinds
// are counted at the failing site via recordFailure.
func (m *parserMetrics) endSession(start time.Time, success bool) {
	if m == nil {
		return
	}
	m.activeParses.Dec()
	m.parseDuration.Observe(time.Since(start).Seconds())

	status := "success"
	if !success {
		status = "failure"
	}
	m.parses.WithLabelValues(status).Inc()
}

// recordInvocation records one handler Parse or Decorate call.
func (m *parserMetrics) recordInvocation(namespace, operation string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.invocations.WithLabelValues(namespace, operation, status).Inc()
}

// recordSkip counts a decoration skipped by the lenient policy. The
// handler is never invoked on this path, so no invocation is recorded.
func (m *parserMetrics) recordSkip(namespace string) {
	if m == nil {
		return
	}
	m.skippedDecorations.WithLabelValues(namespace).Inc()
}

// recordFailure counts a classified failure before the session unwinds.
func (m *parserMetrics) recordFailure(kind errors.Kind) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind.String()).Inc()
}
