package summarizer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vigilstack/vigil-incident/internal/models"
)

func TestBuildCompactContextTrimsTrail(t *testing.T) {
	var trail models.ThinkingLog
	for i := 0; i < 15; i++ {
		trail.Append("agent", "entry %d", i)
	}

	data, err := BuildCompactContext(models.SeverityHigh, "summary", nil, nil, trail, Budget{MaxTrailEntries: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var decoded struct {
		OverallSeverity string   `json:"overall_severity"`
		ThinkingLog     []string `json:"thinking_log"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.OverallSeverity != "high" {
		t.Errorf("severity = %q", decoded.OverallSeverity)
	}
	// Ten newest entries plus the truncation marker.
	if len(decoded.ThinkingLog) != 11 {
		t.Fatalf("trail length = %d, want 11", len(decoded.ThinkingLog))
	}
	if decoded.ThinkingLog[0] != "...[truncated thinking log]..." {
		t.Errorf("first line = %q, want truncation marker", decoded.ThinkingLog[0])
	}
	if decoded.ThinkingLog[10] != "[agent] entry 14" {
		t.Errorf("last line = %q", decoded.ThinkingLog[10])
	}
}

func TestBuildCompactContextShortTrailUntouched(t *testing.T) {
	var trail models.ThinkingLog
	trail.Append("agent", "only entry")

	data, err := BuildCompactContext(models.SeverityOK, "", nil, nil, trail, Budget{MaxTrailEntries: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(string(data), "truncated") {
		t.Errorf("short trail must not carry a marker: %s", data)
	}
}

func TestTrimText(t *testing.T) {
	long := strings.Repeat("x", 5000)
	trimmed := TrimText(long, Budget{MaxSummaryChars: 4000})
	if len(trimmed) != 4000 {
		t.Errorf("trimmed length = %d, want 4000", len(trimmed))
	}
	if !strings.HasSuffix(trimmed, "...[truncated log summary]...") {
		t.Error("expected truncation marker suffix")
	}

	short := "short text"
	if got := TrimText(short, Budget{MaxSummaryChars: 4000}); got != short {
		t.Errorf("short text modified: %q", got)
	}
}

func TestParseSummaryStructured(t *testing.T) {
	text := `{"incident_summary": "timeouts", "overall_severity": "high", "likely_root_causes": ["timeout_configuration"], "recommended_actions": ["increase timeout"]}`
	got := ParseSummary(text, models.SeverityWarning)
	if got.IncidentSummary != "timeouts" {
		t.Errorf("summary = %+v", got)
	}
	if got.OverallSeverity != "high" {
		t.Errorf("parsed severity overridden: %q", got.OverallSeverity)
	}
	if got.LLMReasoning != "" {
		t.Errorf("structured parse must not mark fallback: %q", got.LLMReasoning)
	}
}

func TestParseSummaryStripsCodeFences(t *testing.T) {
	text := "```json\n{\"incident_summary\": \"fenced\"}\n```"
	got := ParseSummary(text, models.SeverityHigh)
	if got.IncidentSummary != "fenced" {
		t.Errorf("fenced parse failed: %+v", got)
	}
}

func TestParseSummaryFallback(t *testing.T) {
	got := ParseSummary("the model rambled in prose", models.SeverityHigh)
	if got.IncidentSummary != "the model rambled in prose" {
		t.Errorf("fallback should keep the raw text: %+v", got)
	}
	if got.OverallSeverity != "high" {
		t.Errorf("fallback severity = %q", got.OverallSeverity)
	}
	if got.LLMReasoning != "Model returned unstructured text, used as plain summary." {
		t.Errorf("fallback marker = %q", got.LLMReasoning)
	}
}

func TestParseSummaryEmptyInput(t *testing.T) {
	got := ParseSummary("", models.SeverityOK)
	if got.IncidentSummary != "RCA summary not available." {
		t.Errorf("empty input summary = %q", got.IncidentSummary)
	}
}

func TestParseSummaryMissingRequiredKey(t *testing.T) {
	// Valid JSON that lacks incident_summary is still a fallback.
	got := ParseSummary(`{"overall_severity": "high"}`, models.SeverityWarning)
	if got.LLMReasoning == "" {
		t.Error("expected fallback for JSON without incident_summary")
	}
}
