package models

import "time"

// LogEvent is a raw log line as returned by the telemetry backend.
// Immutable once fetched.
type LogEvent struct {
	Message   string
	Timestamp int64 // backend ingestion time, epoch milliseconds
	Stream    string
}

// Time converts the backend timestamp into a time.Time.
func (e LogEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// StructuredPayload is the parsed record recovered from a LogEvent.
// The backend timestamp prefix is only present for the tab-delimited wire
// shape and is kept verbatim for cross-referencing against the storage
// console.
type StructuredPayload struct {
	Level         string                 `json:"level"`
	Event         string                 `json:"event"`
	Message       string                 `json:"message"`
	Service       string                 `json:"service"`
	Component     string                 `json:"component"`
	Scenario      string                 `json:"scenario"`
	Timestamp     string                 `json:"timestamp"`
	Details       map[string]interface{} `json:"details"`
	BackendPrefix string                 `json:"-"`
}

// Datapoint is one aggregated reporting interval for a metric.
type Datapoint struct {
	Timestamp time.Time `json:"timestamp"`
	Maximum   float64   `json:"maximum"`
	Sum       float64   `json:"sum"`
}

// MetricCategory enumerates the metric series the detector understands.
type MetricCategory string

const (
	CategoryLatency     MetricCategory = "latency"
	CategoryErrors      MetricCategory = "errors"
	CategoryInvocations MetricCategory = "invocations"
	CategoryCPU         MetricCategory = "cpu"
	CategoryMemory      MetricCategory = "memory"
)

// MetricSummary condenses the fetched series into the headline figures the
// incident note reports.
type MetricSummary struct {
	DurationMaxMS float64 `json:"duration_max_ms"`
	ErrorRate     float64 `json:"error_rate"`
	Invocations   float64 `json:"invocations"`
	CPUMaxPct     float64 `json:"cpu_max_pct"`
	MemoryMaxMB   float64 `json:"memory_max_mb"`
}

// AllMetricCategories lists every series fetched per analysis window.
func AllMetricCategories() []MetricCategory {
	return []MetricCategory{
		CategoryLatency,
		CategoryErrors,
		CategoryInvocations,
		CategoryCPU,
		CategoryMemory,
	}
}
