// Package metrics exposes Prometheus instrumentation for guard decisions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/safeupdate/internal/model"
)

// Namespace prefixes every metric name.
const Namespace = "safeupdate"

// GuardMetrics tracks guard decisions.
//
// Metrics:
//   - safeupdate_guard_decisions_total: decisions by collection, decision and reject kind
//   - safeupdate_guard_evaluation_duration_seconds: time spent evaluating the policy
type GuardMetrics struct {
	decisionsTotal     *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
}

// NewGuardMetrics creates guard metrics and registers them with reg.
// A nil reg creates a private registry.
func NewGuardMetrics(reg prometheus.Registerer) *GuardMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &GuardMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "guard",
				Name:      "decisions_total",
				Help:      "Total number of guard decisions",
			},
			[]string{"collection", "decision", "kind"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "guard",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of guard policy evaluation in seconds",
				// Evaluation is a few map lookups
				Buckets: prometheus.ExponentialBuckets(0.0000005, 2, 12), // 0.5µs to 1ms
			},
		),
	}
	reg.MustRegister(m.decisionsTotal, m.evaluationDuration)
	return m
}

// Observe records one decision.
func (m *GuardMetrics) Observe(collection string, result model.GuardResult, elapsed time.Duration) {
	kind := string(result.Kind)
	if kind == "" {
		kind = "none"
	}
	m.decisionsTotal.WithLabelValues(collection, string(result.Decision), kind).Inc()
	m.evaluationDuration.Observe(elapsed.Seconds())
}
