package models

import "time"

// IncidentPattern is a recurring failure signature mined from incident
// history: a root cause together with the evidence shape that keeps
// producing it.
type IncidentPattern struct {
	ID              string    `json:"id"`
	Cause           Cause     `json:"cause"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	FindingKinds    []string  `json:"finding_kinds,omitempty"`
	AnomalyTypes    []string  `json:"anomaly_types,omitempty"`
	Occurrences     int       `json:"occurrences"`
	Prevalence      float64   `json:"prevalence"`
	PeakSeverity    Severity  `json:"peak_severity"`
	LastSeen        time.Time `json:"last_seen"`
	AvgConfidence   float64   `json:"avg_confidence"`
	Recommendations []string  `json:"recommendations,omitempty"`
}
