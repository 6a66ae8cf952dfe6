package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/vigilstack/vigil-incident/internal/models"
)

// BuildIncidentNote renders the human-readable incident record appended to
// every assembled incident.
func BuildIncidentNote(cause models.Cause, logSummary string, metrics models.MetricSummary, recommendations []string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "INCIDENT ANALYSIS - %s\n\n", now.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "ROOT CAUSE: %s\n\n", titleCause(cause))

	b.WriteString("SUMMARY:\n")
	if logSummary == "" {
		logSummary = "No log summary available"
	}
	b.WriteString(logSummary)
	b.WriteString("\n\n")

	b.WriteString("KEY METRICS:\n")
	fmt.Fprintf(&b, "- Max Duration: %.0fms\n", metrics.DurationMaxMS)
	fmt.Fprintf(&b, "- Error Rate: %.3f\n", metrics.ErrorRate)
	fmt.Fprintf(&b, "- Max CPU: %.1f%%\n", metrics.CPUMaxPct)
	fmt.Fprintf(&b, "- Max Memory: %.1fMB\n\n", metrics.MemoryMaxMB)

	b.WriteString("RECOMMENDED ACTIONS:\n")
	limit := len(recommendations)
	if limit > 3 {
		limit = 3
	}
	for _, rec := range recommendations[:limit] {
		fmt.Fprintf(&b, "- %s\n", rec)
	}

	b.WriteString("\nNEXT STEPS:\n")
	b.WriteString("1. Implement immediate fixes from recommendations\n")
	b.WriteString("2. Monitor system for 15-30 minutes post-fix\n")
	b.WriteString("3. Review and update alerting thresholds if needed\n")

	return b.String()
}

func titleCause(cause models.Cause) string {
	words := strings.Split(string(cause), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
