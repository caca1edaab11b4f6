// Package middleware provides cross-cutting concerns for the trust engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/attest-ml/go-attest/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It provides real-time monitoring of explanation pipeline performance,
// calibration drift, and snapshot cache behavior.
type PrometheusMetrics struct {
	pipelineLatency   *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	consensusScore    prometheus.Histogram
	entropyHist       prometheus.Histogram
	calibrationGauges *prometheus.GaugeVec
	cacheCounter      *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		pipelineLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "explanation_stage_duration_seconds",
				Help:    "Execution time of explanation pipeline stages.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "explanation_operations_total",
				Help: "Total operations performed by the explanation pipeline.",
			},
			[]string{"operation", "status"},
		),
		consensusScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "consensus_score",
				Help:    "Distribution of consensus scores across served explanations.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		entropyHist: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "predictive_entropy",
				Help:    "Distribution of normalized predictive entropy per estimate.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		calibrationGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "calibration_state",
				Help: "Latest calibration fit values (ECE, MCE, temperature).",
			},
			[]string{"metric"},
		),
		cacheCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_cache_requests_total",
				Help: "Snapshot cache lookups partitioned by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// stage latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	stage, ok := labels["stage"]
	if !ok {
		stage = operation
	}
	pm.pipelineLatency.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "snapshot_cache_hit":
		pm.cacheCounter.WithLabelValues("hit").Add(value)
	case "snapshot_cache_miss":
		pm.cacheCounter.WithLabelValues("miss").Add(value)
	case "attribution_method_excluded":
		pm.operationCounter.WithLabelValues("attribution", "excluded_"+labels["method"]).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.calibrationGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in the domain-specific distribution histograms.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "consensus_score":
		pm.consensusScore.Observe(value)
	case "predictive_entropy":
		pm.entropyHist.Observe(value)
	default:
		stage, ok := labels["stage"]
		if !ok {
			stage = metric
		}
		pm.pipelineLatency.WithLabelValues(stage).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
