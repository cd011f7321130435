package durable

import (
	"fmt"
	"sync/atomic"
)

// Metrics are process-wide counters. They are observational only and are
// not part of the memoization correctness surface.
var (
	metricSteps             atomic.Int64
	metricFailures          atomic.Int64
	metricWorkflowRestarts  atomic.Int64
	metricCompensations     atomic.Int64
)

// MetricsSnapshot is a point-in-time read of the process-wide counters.
type MetricsSnapshot struct {
	Steps             int64
	Failures          int64
	WorkflowRestarts  int64
	Compensations     int64
}

// Metrics returns the current counter values.
func Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		Steps:            metricSteps.Load(),
		Failures:         metricFailures.Load(),
		WorkflowRestarts: metricWorkflowRestarts.Load(),
		Compensations:    metricCompensations.Load(),
	}
}

// ResetMetrics zeroes every counter. Intended for test isolation.
func ResetMetrics() {
	metricSteps.Store(0)
	metricFailures.Store(0)
	metricWorkflowRestarts.Store(0)
	metricCompensations.Store(0)
}

// IncrementWorkflowRestarts is called by drivers (e.g. the CLI) on resume,
// once per process start that picks up an existing workflow id.
func IncrementWorkflowRestarts() {
	metricWorkflowRestarts.Add(1)
}

// MetricsSummary renders the counters as a single human-readable line,
// matching the shape of a CLI status report.
func MetricsSummary() string {
	m := Metrics()
	return fmt.Sprintf("steps=%d failures=%d workflow_restarts=%d compensations=%d",
		m.Steps, m.Failures, m.WorkflowRestarts, m.Compensations)
}
