// Package summarizer defines the external language-model boundary: the core
// hands it a size-bounded JSON context plus a text summary, and tolerates
// free-form, malformed, or absent output by falling back to a deterministic
// default shape.
package summarizer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vigilstack/vigil-incident/internal/models"
)

// Summarizer phrases an incident summary from a compact JSON context and a
// plain-text note. Implementations may fail or time out; callers must treat
// any error as "use the fallback".
type Summarizer interface {
	Summarize(ctx context.Context, compactContext []byte, text string) (string, error)
}

// Budget bounds the context handed to the summarizer. Trimming is a core
// responsibility, not the summarizer's.
type Budget struct {
	// MaxTrailEntries keeps only the newest N thinking-log entries.
	MaxTrailEntries int `yaml:"maxTrailEntries"`
	// MaxSummaryChars truncates the plain-text summary.
	MaxSummaryChars int `yaml:"maxSummaryChars"`
}

// DefaultBudget mirrors the limits the reasoning service was tuned for.
func DefaultBudget() Budget {
	return Budget{MaxTrailEntries: 10, MaxSummaryChars: 4000}
}

const (
	trailTruncationMarker = "...[truncated thinking log]..."
	textTruncationMarker  = "\n...[truncated log summary]..."
)

// compactContext is the JSON shape sent to the summarizer.
type compactContext struct {
	OverallSeverity string                       `json:"overall_severity"`
	Summary         string                       `json:"summary"`
	Violations      []models.MetricAnomaly       `json:"violations"`
	Hypotheses      []models.RootCauseHypothesis `json:"hypotheses"`
	ThinkingLog     []string                     `json:"thinking_log"`
}

// BuildCompactContext trims the analysis state to the configured budget:
// the newest MaxTrailEntries of the trail (prefixed with an explicit
// truncation marker when older entries were dropped) and the anomaly and
// hypothesis sets verbatim.
func BuildCompactContext(severity models.Severity, summary string, anomalies []models.MetricAnomaly, hypotheses []models.RootCauseHypothesis, trail models.ThinkingLog, budget Budget) ([]byte, error) {
	if budget.MaxTrailEntries <= 0 {
		budget.MaxTrailEntries = DefaultBudget().MaxTrailEntries
	}

	lines := trail.Lines()
	if len(lines) > budget.MaxTrailEntries {
		lines = append([]string{trailTruncationMarker}, lines[len(lines)-budget.MaxTrailEntries:]...)
	}

	return json.Marshal(compactContext{
		OverallSeverity: string(severity),
		Summary:         summary,
		Violations:      anomalies,
		Hypotheses:      hypotheses,
		ThinkingLog:     lines,
	})
}

// TrimText enforces the character budget on the plain-text summary,
// appending an explicit truncation marker when it was cut.
func TrimText(text string, budget Budget) string {
	if budget.MaxSummaryChars <= 0 {
		budget.MaxSummaryChars = DefaultBudget().MaxSummaryChars
	}
	if len(text) <= budget.MaxSummaryChars {
		return text
	}
	keep := budget.MaxSummaryChars - len(textTruncationMarker)
	if keep < 0 {
		keep = 0
	}
	return text[:keep] + textTruncationMarker
}

// ParseSummary attempts to read the summarizer output as the documented
// incident-summary JSON shape. Markdown code fences are stripped first. Any
// parse failure or a missing incident_summary key yields the deterministic
// fallback; no partial recovery is attempted.
func ParseSummary(text string, severity models.Severity) models.IncidentSummary {
	cleaned := stripFences(strings.TrimSpace(text))

	if cleaned != "" {
		var parsed models.IncidentSummary
		if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil && parsed.IncidentSummary != "" {
			return parsed
		}
	}

	return FallbackSummary(text, severity)
}

// FallbackSummary wraps raw summarizer output (or nothing at all) in the
// minimal default shape, with LLMReasoning marking it as a fallback.
func FallbackSummary(text string, severity models.Severity) models.IncidentSummary {
	summary := strings.TrimSpace(text)
	if summary == "" {
		summary = "RCA summary not available."
	}
	return models.IncidentSummary{
		IncidentSummary: summary,
		OverallSeverity: string(severity),
		LLMReasoning:    "Model returned unstructured text, used as plain summary.",
	}
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
