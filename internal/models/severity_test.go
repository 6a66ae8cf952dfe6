package models

import "testing"

func TestClassifySeverity(t *testing.T) {
	cases := map[string]Severity{
		"DEBUG":    SeverityOK,
		"INFO":     SeverityOK,
		"info":     SeverityOK,
		"WARNING":  SeverityWarning,
		"warn":     SeverityWarning,
		"ERROR":    SeverityHigh,
		"error":    SeverityHigh,
		"CRITICAL": SeverityCritical,
		"FATAL":    SeverityCritical,
		" error ":  SeverityHigh,
		"":         SeverityOK,
		"bogus":    SeverityOK,
	}
	for level, want := range cases {
		if got := ClassifySeverity(level); got != want {
			t.Errorf("ClassifySeverity(%q) = %s, want %s", level, got, want)
		}
	}
}

func TestMergeSeverityOrdering(t *testing.T) {
	all := []Severity{SeverityOK, SeverityWarning, SeverityHigh, SeverityCritical}

	for i, lower := range all {
		for _, higher := range all[i:] {
			if got := MergeSeverity(lower, higher); got != higher {
				t.Errorf("MergeSeverity(%s, %s) = %s, want %s", lower, higher, got, higher)
			}
			// Merge is commutative.
			if got := MergeSeverity(higher, lower); got != higher {
				t.Errorf("MergeSeverity(%s, %s) = %s, want %s", higher, lower, got, higher)
			}
		}
	}

	for _, s := range all {
		if got := MergeSeverity(s, s); got != s {
			t.Errorf("MergeSeverity(%s, %s) = %s, want idempotent", s, s, got)
		}
		if got := MergeSeverity(s, SeverityOK); got != s {
			t.Errorf("MergeSeverity(%s, ok) = %s, want %s", s, got, s)
		}
	}
}

func TestMaxSeverity(t *testing.T) {
	if got := MaxSeverity(); got != SeverityOK {
		t.Errorf("MaxSeverity() = %s, want ok", got)
	}
	if got := MaxSeverity(SeverityWarning, SeverityCritical, SeverityHigh); got != SeverityCritical {
		t.Errorf("MaxSeverity = %s, want critical", got)
	}
}

func TestSeverityRankUnknown(t *testing.T) {
	if got := Severity("nonsense").Rank(); got != 0 {
		t.Errorf("unknown severity rank = %d, want 0", got)
	}
}
