// Package metrics holds the Prometheus collectors for planner runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search outcomes recorded on SearchRequests.
const (
	SearchOK       = "ok"
	SearchEmpty    = "empty"
	SearchFallback = "fallback"
)

// Pipeline outcomes recorded on PipelineRuns.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// Metrics holds Prometheus metrics for pipeline observability.
type Metrics struct {
	PipelineRuns   *prometheus.CounterVec   // Runs by outcome
	StageDuration  *prometheus.HistogramVec // Wall time per stage
	SearchRequests *prometheus.CounterVec   // Search tool calls by outcome
	ModelTokens    *prometheus.CounterVec   // Tokens reported by the model, by stage and direction
}

// NewMetrics creates and registers the collectors.
// The registerer parameter allows flexible registration (e.g., global registry, test registry).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	pipelineRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bonvoyage_pipeline_runs_total",
		Help: "Total number of pipeline runs by outcome",
	}, []string{"outcome"})

	// LLM stages take seconds to minutes
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bonvoyage_stage_duration_seconds",
		Help:    "Duration of a single pipeline stage",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
	}, []string{"stage"})

	searchRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bonvoyage_search_requests_total",
		Help: "Total number of web search tool calls by outcome",
	}, []string{"outcome"})

	modelTokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bonvoyage_model_tokens_total",
		Help: "Tokens consumed by model calls",
	}, []string{"stage", "direction"})

	reg.MustRegister(pipelineRuns)
	reg.MustRegister(stageDuration)
	reg.MustRegister(searchRequests)
	reg.MustRegister(modelTokens)

	return &Metrics{
		PipelineRuns:   pipelineRuns,
		StageDuration:  stageDuration,
		SearchRequests: searchRequests,
		ModelTokens:    modelTokens,
	}
}

// ObserveRun counts a finished run. Safe on a nil receiver.
func (m *Metrics) ObserveRun(outcome string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took. Safe on a nil receiver.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveSearch counts a search tool call. Safe on a nil receiver.
func (m *Metrics) ObserveSearch(outcome string) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(outcome).Inc()
}

// ObserveTokens adds model token usage for a stage. Safe on a nil receiver.
func (m *Metrics) ObserveTokens(stage string, input, output int) {
	if m == nil {
		return
	}
	if input > 0 {
		m.ModelTokens.WithLabelValues(stage, "input").Add(float64(input))
	}
	if output > 0 {
		m.ModelTokens.WithLabelValues(stage, "output").Add(float64(output))
	}
}
