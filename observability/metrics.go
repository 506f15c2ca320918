// Package observability exposes Prometheus instrumentation for the
// invocation loop and pipeline. All Metrics methods are nil-receiver safe so
// the core runs unchanged without a collector.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the counters and histograms recorded during a run.
type Metrics struct {
	modelCalls     *prometheus.CounterVec
	toolDispatches *prometheus.CounterVec
	stageRuns      *prometheus.CounterVec
	loopIterations prometheus.Histogram
	runDuration    prometheus.Histogram
}

// NewMetrics creates and registers the scenesmith metric set on the given
// registerer (use prometheus.DefaultRegisterer for the process default).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		modelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenesmith_model_calls_total",
				Help: "Model generate calls by agent and outcome.",
			},
			[]string{"agent", "outcome"},
		),
		toolDispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenesmith_tool_dispatches_total",
				Help: "Tool dispatches by tool name and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		stageRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scenesmith_stage_runs_total",
				Help: "Pipeline stage executions by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		loopIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scenesmith_loop_iterations",
				Help:    "Tool-call rounds per invocation loop.",
				Buckets: prometheus.LinearBuckets(0, 1, 12),
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scenesmith_pipeline_run_duration_seconds",
				Help:    "End-to-end pipeline run duration.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	reg.MustRegister(m.modelCalls, m.toolDispatches, m.stageRuns, m.loopIterations, m.runDuration)
	return m
}

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

func outcome(failed bool) string {
	if failed {
		return outcomeError
	}
	return outcomeOK
}

// ObserveModelCall records one Generate call.
func (m *Metrics) ObserveModelCall(agent string, failed bool) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(agent, outcome(failed)).Inc()
}

// ObserveToolDispatch records one tool dispatch.
func (m *Metrics) ObserveToolDispatch(tool string, failed bool) {
	if m == nil {
		return
	}
	m.toolDispatches.WithLabelValues(tool, outcome(failed)).Inc()
}

// ObserveStage records a stage execution with a free-form outcome label
// ("ok", "contract_violation", "cancelled", "loop_exhausted", "error").
func (m *Metrics) ObserveStage(stage, result string) {
	if m == nil {
		return
	}
	m.stageRuns.WithLabelValues(stage, result).Inc()
}

// ObserveLoop records the number of tool-call rounds one loop consumed.
func (m *Metrics) ObserveLoop(iterations int) {
	if m == nil {
		return
	}
	m.loopIterations.Observe(float64(iterations))
}

// ObserveRunDuration records the wall time of one pipeline run.
func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}
