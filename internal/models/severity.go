package models

import "strings"

// Severity captures problem urgency, ordered ok < warning < high < critical.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityOrder = []Severity{SeverityOK, SeverityWarning, SeverityHigh, SeverityCritical}

// Rank returns the ordinal position of the severity. Unknown values rank as ok.
func (s Severity) Rank() int {
	for i, candidate := range severityOrder {
		if s == candidate {
			return i
		}
	}
	return 0
}

// ClassifySeverity maps a log level name onto a severity. Matching is
// case-insensitive and unrecognised levels map to ok, never an error.
func ClassifySeverity(level string) Severity {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "WARNING", "WARN":
		return SeverityWarning
	case "ERROR":
		return SeverityHigh
	case "CRITICAL", "FATAL":
		return SeverityCritical
	default:
		return SeverityOK
	}
}

// MergeSeverity returns the higher-ranked of the two severities.
func MergeSeverity(a, b Severity) Severity {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// MaxSeverity folds MergeSeverity over a sequence, starting from ok.
func MaxSeverity(values ...Severity) Severity {
	result := SeverityOK
	for _, v := range values {
		result = MergeSeverity(result, v)
	}
	return result
}
