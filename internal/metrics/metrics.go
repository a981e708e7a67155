// Package metrics holds the Prometheus collectors shared by the agent loop,
// the tool dispatcher and the meeting orchestrators.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agentlab"

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for agentlab.
type Metrics struct {
	// Agent loop
	LoopIterations  *prometheus.HistogramVec
	LoopOutcomes    *prometheus.CounterVec
	BackendRetries  *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec

	// Tool dispatch
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec

	// Meetings
	PhaseDuration    *prometheus.HistogramVec
	RedFlags         *prometheus.CounterVec
	SubtaskOutcomes  *prometheus.CounterVec
	SpecialistErrors prometheus.Counter
}

// Default returns the process-wide metrics, registering them with the default
// Prometheus registry on first use. sync.Once prevents duplicate registration.
//
// Metrics:
//   - agentlab_agent_loop_iterations{role} - model calls per agent loop
//   - agentlab_agent_loop_outcomes_total{status} - completed, iteration_limit, failed
//   - agentlab_backend_retries_total{provider} - retried backend calls
//   - agentlab_backend_call_duration_seconds{provider}
//   - agentlab_tool_calls_total{tool,success}
//   - agentlab_tool_call_duration_seconds{tool}
//   - agentlab_meeting_phase_duration_seconds{meeting,phase}
//   - agentlab_meeting_red_flags_total{severity}
//   - agentlab_meeting_subtask_outcomes_total{status}
//   - agentlab_meeting_specialist_errors_total
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			LoopIterations: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Subsystem: "agent",
					Name:      "loop_iterations",
					Help:      "Model calls made by one agent loop",
					Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
				},
				[]string{"role"},
			),
			LoopOutcomes: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: "agent",
					Name:      "loop_outcomes_total",
					Help:      "Agent loop terminations by status",
				},
				[]string{"status"},
			),
			BackendRetries: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: "backend",
					Name:      "retries_total",
					Help:      "Backend calls retried after a failure",
				},
				[]string{"provider"},
			),
			BackendDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Subsystem: "backend",
					Name:      "call_duration_seconds",
					Help:      "Duration of backend calls in seconds",
					Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
				},
				[]string{"provider"},
			),
			ToolCalls: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: "tool",
					Name:      "calls_total",
					Help:      "Tool dispatches by tool and success",
				},
				[]string{"tool", "success"},
			),
			ToolDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Subsystem: "tool",
					Name:      "call_duration_seconds",
					Help:      "Duration of tool dispatches in seconds",
					Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
				},
				[]string{"tool"},
			),
			PhaseDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Subsystem: "meeting",
					Name:      "phase_duration_seconds",
					Help:      "Duration of meeting phases in seconds",
					Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
				},
				[]string{"meeting", "phase"},
			),
			RedFlags: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: "meeting",
					Name:      "red_flags_total",
					Help:      "Red flags raised by the quality gate",
				},
				[]string{"severity"},
			),
			SubtaskOutcomes: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: "meeting",
					Name:      "subtask_outcomes_total",
					Help:      "Subtasks by final status",
				},
				[]string{"status"},
			),
			SpecialistErrors: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: "meeting",
					Name:      "specialist_errors_total",
					Help:      "Specialist or critic loops that failed and were recorded as errors",
				},
			),
		}
	})

	return globalMetrics
}

// RecordLoop records the end of one agent loop.
func (m *Metrics) RecordLoop(role, status string, iterations int) {
	m.LoopIterations.WithLabelValues(role).Observe(float64(iterations))
	m.LoopOutcomes.WithLabelValues(status).Inc()
}

// RecordBackendCall records a backend call duration.
func (m *Metrics) RecordBackendCall(provider string, d time.Duration) {
	m.BackendDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordBackendRetry records one retried backend call.
func (m *Metrics) RecordBackendRetry(provider string) {
	m.BackendRetries.WithLabelValues(provider).Inc()
}

// RecordToolCall records a tool dispatch.
func (m *Metrics) RecordToolCall(tool string, success bool, d time.Duration) {
	label := "false"
	if success {
		label = "true"
	}

	m.ToolCalls.WithLabelValues(tool, label).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordPhase records the duration of a meeting phase.
func (m *Metrics) RecordPhase(meeting, phase string, d time.Duration) {
	m.PhaseDuration.WithLabelValues(meeting, phase).Observe(d.Seconds())
}

// RecordRedFlag records a red flag raised by the quality gate.
func (m *Metrics) RecordRedFlag(severity string) {
	if severity == "" {
		severity = "unspecified"
	}

	m.RedFlags.WithLabelValues(severity).Inc()
}

// RecordSubtask records a subtask's final status.
func (m *Metrics) RecordSubtask(status string) {
	m.SubtaskOutcomes.WithLabelValues(status).Inc()
}

// RecordSpecialistError records an isolated specialist or critic failure.
func (m *Metrics) RecordSpecialistError() {
	m.SpecialistErrors.Inc()
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
