// Package metrics defines the prometheus collectors for the Graft engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's collectors. Construct with New and attach
// to an engine via runtime.WithMetrics.
type Metrics struct {
	steps        *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	runs         *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graft",
			Name:      "steps_total",
			Help:      "Executed graph steps by node.",
		}, []string{"node"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graft",
			Name:      "tool_calls_total",
			Help:      "Dispatched tool calls by tool and outcome.",
		}, []string{"tool", "status"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graft",
			Name:      "runs_total",
			Help:      "Completed runs by terminal status.",
		}, []string{"status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "graft",
			Name:      "step_duration_seconds",
			Help:      "Wall time of one graph step, including tool dispatch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
	}
}

// ObserveStep records one completed step.
func (m *Metrics) ObserveStep(node string, d time.Duration) {
	m.steps.WithLabelValues(node).Inc()
	m.stepDuration.WithLabelValues(node).Observe(d.Seconds())
}

// ObserveToolCall records one dispatched tool call.
func (m *Metrics) ObserveToolCall(tool string, isError bool) {
	status := "ok"
	if isError {
		status = "error"
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}

// ObserveRun records one run reaching a terminal status.
func (m *Metrics) ObserveRun(status string) {
	m.runs.WithLabelValues(status).Inc()
}
