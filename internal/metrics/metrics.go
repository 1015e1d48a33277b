package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for Weft.
type Metrics struct {
	// Pipeline metrics
	PipelineRuns        *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	StageErrors         *prometheus.CounterVec
	IdentityInferred    *prometheus.CounterVec
	ClassifierFallbacks prometheus.Counter

	// Selector metrics
	SelectorDecisions *prometheus.CounterVec
	EmptyCandidates   prometheus.Counter

	// Guardrail metrics
	GuardrailChecks     *prometheus.CounterVec
	GuardrailViolations *prometheus.CounterVec

	// Scoring metrics
	ScoreUpdates   *prometheus.CounterVec
	RegenTriggers  prometheus.Counter
	RegenCompleted prometheus.Counter
	RegenFailed    prometheus.Counter
	ScoreGap       prometheus.Histogram

	// Store metrics
	SessionLoads *prometheus.CounterVec
	SessionSaves *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			PipelineRuns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_pipeline_runs_total",
					Help: "Total pipeline runs by outcome",
				},
				[]string{"outcome"},
			),
			StageDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "weft_pipeline_stage_duration_seconds",
					Help:    "Duration of each pipeline stage",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"stage"},
			),
			StageErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_pipeline_stage_errors_total",
					Help: "Stage errors recorded as degraded annotations",
				},
				[]string{"stage"},
			),
			IdentityInferred: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_identity_inferred_total",
					Help: "Identity classifications by state",
				},
				[]string{"state"},
			),
			ClassifierFallbacks: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "weft_classifier_fallbacks_total",
					Help: "External classifier failures degraded to the rule chain",
				},
			),
			SelectorDecisions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_selector_decisions_total",
					Help: "Variant selections by mode (explore/exploit)",
				},
				[]string{"mode"},
			),
			EmptyCandidates: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "weft_selector_empty_candidates_total",
					Help: "Selector calls with no variants available",
				},
			),
			GuardrailChecks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_guardrail_checks_total",
					Help: "Guardrail validations by verdict",
				},
				[]string{"verdict"},
			),
			GuardrailViolations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_guardrail_violations_total",
					Help: "Guardrail violations by rule",
				},
				[]string{"rule"},
			),
			ScoreUpdates: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_score_updates_total",
					Help: "Scored interactions by type",
				},
				[]string{"interaction_type"},
			),
			RegenTriggers: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "weft_regeneration_triggers_total",
					Help: "Regenerations triggered by the score gap threshold",
				},
			),
			RegenCompleted: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "weft_regenerations_completed_total",
					Help: "Regeneration jobs that produced replacement content",
				},
			),
			RegenFailed: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "weft_regenerations_failed_total",
					Help: "Regeneration jobs that failed generation",
				},
			),
			ScoreGap: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "weft_score_gap",
					Help:    "Absolute A/B score gap observed after each update",
					Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 21},
				},
			),
			SessionLoads: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_session_loads_total",
					Help: "Session store loads by result",
				},
				[]string{"result"},
			),
			SessionSaves: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weft_session_saves_total",
					Help: "Session store saves by result",
				},
				[]string{"result"},
			),
		}
	})

	return sharedMetrics
}
