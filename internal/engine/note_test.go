package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/vigilstack/vigil-incident/internal/models"
)

func TestBuildIncidentNote(t *testing.T) {
	now := time.Date(2025, 11, 24, 8, 51, 19, 0, time.UTC)
	metrics := models.MetricSummary{
		DurationMaxMS: 30000,
		ErrorRate:     0.125,
		CPUMaxPct:     85.5,
		MemoryMaxMB:   210.2,
	}
	recs := []string{"first", "second", "third", "fourth"}

	note := BuildIncidentNote(models.CauseTimeoutConfiguration, "Analyzed 12 events: 3 errors", metrics, recs, now)

	for _, want := range []string{
		"INCIDENT ANALYSIS - 2025-11-24 08:51:19 UTC",
		"ROOT CAUSE: Timeout Configuration",
		"Analyzed 12 events: 3 errors",
		"- Max Duration: 30000ms",
		"- Error Rate: 0.125",
		"- Max CPU: 85.5%",
		"- Max Memory: 210.2MB",
		"- first",
		"- third",
		"NEXT STEPS:",
		"2. Monitor system for 15-30 minutes post-fix",
	} {
		if !strings.Contains(note, want) {
			t.Errorf("note missing %q\n%s", want, note)
		}
	}

	// Only the top three recommendations make the note.
	if strings.Contains(note, "- fourth") {
		t.Error("note should cap recommended actions at three")
	}
}

func TestBuildIncidentNoteEmptySummary(t *testing.T) {
	note := BuildIncidentNote(models.CauseUnknown, "", models.MetricSummary{}, nil, time.Now())
	if !strings.Contains(note, "No log summary available") {
		t.Error("expected placeholder summary")
	}
	if !strings.Contains(note, "ROOT CAUSE: Unknown Anomaly") {
		t.Errorf("note = %s", note)
	}
}
