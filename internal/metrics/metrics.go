// Package metrics provides Prometheus instrumentation for the anomaly engine.
//
// The collector is injectable and nil-safe: components accept a *Collector
// and may receive nil when instrumentation is disabled, so library code never
// has to branch on configuration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates detection and review workflow metrics.
type Collector struct {
	registry          *prometheus.Registry
	rulesEvaluated    prometheus.Counter
	ruleMatches       prometheus.Counter
	ruleErrors        prometheus.Counter
	anomaliesCreated  *prometheus.CounterVec
	actionsDropped    prometheus.Counter
	batchDuration     prometheus.Histogram
	reviewTransitions *prometheus.CounterVec
	reviewRejections  *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		rulesEvaluated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "watchtower_rules_evaluated_total",
			Help: "Total number of rule evaluations performed",
		}),
		ruleMatches: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "watchtower_rule_matches_total",
			Help: "Total number of rule evaluations that matched",
		}),
		ruleErrors: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "watchtower_rule_evaluation_errors_total",
			Help: "Total number of rule evaluations skipped due to errors",
		}),
		anomaliesCreated: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "watchtower_anomaly_drafts_total",
			Help: "Total number of anomaly drafts emitted, by anomaly type",
		}, []string{"anomaly_type"}),
		actionsDropped: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "watchtower_actions_dropped_total",
			Help: "Total number of actions dropped due to render failures",
		}),
		batchDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "watchtower_batch_detection_duration_seconds",
			Help:    "Time taken to detect anomalies over one batch",
			Buckets: prometheus.DefBuckets,
		}),
		reviewTransitions: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "watchtower_review_transitions_total",
			Help: "Total number of applied review transitions, by target status",
		}, []string{"new_status"}),
		reviewRejections: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "watchtower_review_rejections_total",
			Help: "Total number of rejected review submissions, by cause",
		}, []string{"cause"}),
	}
}

// RuleEvaluated records one rule evaluation and its outcome.
func (c *Collector) RuleEvaluated(matched bool) {
	if c == nil {
		return
	}
	c.rulesEvaluated.Inc()
	if matched {
		c.ruleMatches.Inc()
	}
}

// RuleError records one rule skipped due to an evaluation error.
func (c *Collector) RuleError() {
	if c == nil {
		return
	}
	c.ruleErrors.Inc()
}

// AnomalyDrafted records one emitted anomaly draft.
func (c *Collector) AnomalyDrafted(anomalyType string) {
	if c == nil {
		return
	}
	c.anomaliesCreated.WithLabelValues(anomalyType).Inc()
}

// ActionDropped records one action dropped due to a render failure.
func (c *Collector) ActionDropped() {
	if c == nil {
		return
	}
	c.actionsDropped.Inc()
}

// BatchObserved records the duration of one batch detection pass.
func (c *Collector) BatchObserved(d time.Duration) {
	if c == nil {
		return
	}
	c.batchDuration.Observe(d.Seconds())
}

// ReviewTransition records one applied review transition.
func (c *Collector) ReviewTransition(newStatus string) {
	if c == nil {
		return
	}
	c.reviewTransitions.WithLabelValues(newStatus).Inc()
}

// ReviewRejected records one rejected review submission.
func (c *Collector) ReviewRejected(cause string) {
	if c == nil {
		return
	}
	c.reviewRejections.WithLabelValues(cause).Inc()
}

// Handler returns an HTTP handler exposing the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
