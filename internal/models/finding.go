package models

// FindingKind categorises a piece of log-derived evidence.
type FindingKind string

const (
	FindingTimeout  FindingKind = "timeout"
	FindingLatency  FindingKind = "latency"
	FindingRetry    FindingKind = "retry"
	FindingResource FindingKind = "resource"
	FindingError    FindingKind = "error"
)

// Finding is a single categorised piece of evidence extracted from logs.
type Finding struct {
	Kind      FindingKind `json:"kind"`
	Timestamp int64       `json:"timestamp"`
	Message   string      `json:"message"`
	Scenario  string      `json:"scenario,omitempty"`
	// LatencyMS is the extracted duration for latency findings, zero otherwise.
	LatencyMS int `json:"latency_ms,omitempty"`
}

// AnomalyType names a metric threshold violation.
type AnomalyType string

const (
	AnomalyLatencySpike   AnomalyType = "latency_spike"
	AnomalyErrorRateSpike AnomalyType = "error_rate_spike"
	AnomalyCPUSpike       AnomalyType = "cpu_spike"
	AnomalyMemorySpike    AnomalyType = "memory_spike"
)

// MetricAnomaly records a metric value that violated its threshold.
type MetricAnomaly struct {
	Type      AnomalyType `json:"type"`
	Value     float64     `json:"value"`
	Threshold float64     `json:"threshold"`
	Severity  Severity    `json:"severity"`
}
