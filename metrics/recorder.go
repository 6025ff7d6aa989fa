// Package metrics exposes Prometheus instrumentation for generation
// sessions plus an in-process statistical summary of recent quality
// scores.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mosaicworks/cadenceforge/pipeline"
)

// Outcome labels for the sessions counter.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeFailure  = "failure"
)

// Recorder holds the Prometheus collectors for the pipeline. One
// Recorder per process; all sessions share it.
type Recorder struct {
	registry *prometheus.Registry

	sessions      *prometheus.CounterVec
	attempts      prometheus.Counter
	corrections   prometheus.Counter
	recoveries    *prometheus.CounterVec
	qualityScores prometheus.Histogram
	duration      prometheus.Histogram
}

// NewRecorder creates a Recorder with its own registry so tests never
// collide on the global default.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadenceforge",
			Name:      "sessions_total",
			Help:      "Generation sessions by outcome.",
		}, []string{"outcome", "category"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cadenceforge",
			Name:      "attempts_total",
			Help:      "Generation attempts across all sessions.",
		}),
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cadenceforge",
			Name:      "corrections_total",
			Help:      "Auto-correction passes applied.",
		}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadenceforge",
			Name:      "recoveries_total",
			Help:      "Successful recovery strategy applications.",
		}, []string{"strategy"}),
		qualityScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cadenceforge",
			Name:      "final_quality_score",
			Help:      "Final overall quality score per session.",
			Buckets:   []float64{40, 60, 70, 80, 85, 90, 95, 100},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cadenceforge",
			Name:      "session_duration_seconds",
			Help:      "Wall-clock session duration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	registry.MustRegister(r.sessions, r.attempts, r.corrections, r.recoveries, r.qualityScores, r.duration)
	return r
}

// ObserveSession records one finished session.
func (r *Recorder) ObserveSession(result *pipeline.RetryResult, category string) {
	outcome := OutcomeFailure
	switch {
	case result.Success && result.FallbackUsed:
		outcome = OutcomeFallback
	case result.Success:
		outcome = OutcomeSuccess
	}

	r.sessions.WithLabelValues(outcome, category).Inc()
	r.attempts.Add(float64(result.TotalAttempts))
	r.qualityScores.Observe(result.FinalQualityScore.Overall)
	r.duration.Observe(result.Metrics.EndTime.Sub(result.Metrics.StartTime).Seconds())

	for _, attempt := range result.RetryHistory {
		r.corrections.Add(float64(len(attempt.CorrectionAttempts)))
	}
	for _, strategy := range result.RecoveryStrategiesUsed {
		r.recoveries.WithLabelValues(strategy).Inc()
	}
}

// Handler serves the /metrics scrape endpoint for this Recorder's
// registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and for embedding
// in a larger metrics surface.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
