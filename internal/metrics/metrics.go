// Package metrics exports Prometheus metrics for agent runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codeagent"

// Run outcomes.
const (
	OutcomeResult = "result"
	OutcomeError  = "error"
	OutcomeFailed = "failed"
)

// Metrics holds every collector the agent reports to.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunIterations  prometheus.Histogram
	ToolCallsTotal *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	StepReplays    *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Finished runs by outcome",
			},
			[]string{"outcome"},
		),
		RunIterations: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_iterations",
				Help:      "Agent iterations per run",
				Buckets:   []float64{1, 2, 3, 5, 8, 10, 12, 15},
			},
		),
		ToolCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool calls dispatched by tool name",
			},
			[]string{"tool"},
		),
		StepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Durable step execution time in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"step"},
		),
		StepReplays: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_replays_total",
				Help:      "Steps skipped because a checkpoint existed",
			},
			[]string{"step"},
		),
	}
}

// ObserveStep records a step execution or replay.
func (m *Metrics) ObserveStep(step string, d time.Duration, replayed bool) {
	if replayed {
		m.StepReplays.WithLabelValues(step).Inc()
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(outcome string, iterations int) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if iterations > 0 {
		m.RunIterations.Observe(float64(iterations))
	}
}

// RecordToolCall counts one dispatched tool call.
func (m *Metrics) RecordToolCall(tool string) {
	m.ToolCallsTotal.WithLabelValues(tool).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
