package models

import "time"

// Cause identifies a root-cause candidate from the fixed catalogue.
type Cause string

const (
	CauseTimeoutConfiguration Cause = "timeout_configuration"
	CauseDownstreamDegraded   Cause = "downstream_service_degradation"
	CauseResourceExhaustion   Cause = "resource_exhaustion"
	CauseErrorSpike           Cause = "application_error_spike"
	CauseUnknown              Cause = "unknown_anomaly"
)

// CauseCatalogue lists every cause in selection tie-break order.
func CauseCatalogue() []Cause {
	return []Cause{
		CauseTimeoutConfiguration,
		CauseDownstreamDegraded,
		CauseResourceExhaustion,
		CauseErrorSpike,
		CauseUnknown,
	}
}

// RootCauseHypothesis is a scored root-cause candidate. Confidence is an
// unnormalised non-negative heuristic, comparable only within one inference
// run.
type RootCauseHypothesis struct {
	Cause      Cause   `json:"cause"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence,omitempty"`
}

// Alert is the baseline-stage trigger record that starts an escalation.
type Alert struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Service   string          `json:"service"`
	Anomalies []MetricAnomaly `json:"anomalies"`
	Severity  Severity        `json:"severity"`
}

// IncidentSummary is the documented shape of a summarizer response. Raw or
// unparseable summarizer output is wrapped into this shape with LLMReasoning
// marking the fallback.
type IncidentSummary struct {
	IncidentSummary    string   `json:"incident_summary"`
	OverallSeverity    string   `json:"overall_severity"`
	LikelyRootCauses   []string `json:"likely_root_causes"`
	ImpactedComponents []string `json:"impacted_components"`
	RecommendedActions []string `json:"recommended_actions"`
	LLMReasoning       string   `json:"llm_reasoning"`
}

// Incident is a fully assembled incident record. All sub-structures are
// owned exclusively by the incident.
type Incident struct {
	ID              string                `json:"incident_id"`
	CreatedAt       time.Time             `json:"created_at"`
	Alert           Alert                 `json:"alert"`
	Findings        []Finding             `json:"findings"`
	Anomalies       []MetricAnomaly       `json:"anomalies"`
	RootCause       RootCauseHypothesis   `json:"root_cause"`
	Hypotheses      []RootCauseHypothesis `json:"possible_causes"`
	Recommendations []string              `json:"recommendations"`
	// RecommendedAction is the first recommendation, surfaced for on-call.
	RecommendedAction string          `json:"recommended_action"`
	Note              string          `json:"incident_note"`
	Summary           IncidentSummary `json:"summary"`
	ThinkingLog       ThinkingLog     `json:"thinking_log"`
}
