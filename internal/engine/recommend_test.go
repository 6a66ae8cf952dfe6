package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/vigilstack/vigil-incident/internal/models"
)

func TestRuleEngineApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(`rules:
  - id: timeout-playbook
    match:
      cause: timeout_configuration
      finding_kinds: [timeout]
    recommendations: ["Link the timeout runbook"]
  - id: page-oncall
    match:
      min_severity: high
    recommendations: ["Page the on-call engineer"]
`), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	engine, err := NewRuleEngine(path, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	base := []string{"Increase handler timeout configuration to 15+ seconds"}
	findings := []models.Finding{{Kind: models.FindingTimeout}}

	recs := engine.Apply(base, models.CauseTimeoutConfiguration, findings, models.SeverityHigh)
	if len(recs) != 3 {
		t.Fatalf("expected base + both rules, got %v", recs)
	}
	if recs[0] != base[0] {
		t.Errorf("base recommendation must stay first, got %v", recs)
	}

	// Below min_severity the on-call rule must not fire.
	recs = engine.Apply(base, models.CauseTimeoutConfiguration, findings, models.SeverityWarning)
	for _, rec := range recs {
		if rec == "Page the on-call engineer" {
			t.Errorf("severity-gated rule fired at warning: %v", recs)
		}
	}

	// Wrong cause skips the cause-matched rule.
	recs = engine.Apply(base, models.CauseErrorSpike, findings, models.SeverityHigh)
	for _, rec := range recs {
		if rec == "Link the timeout runbook" {
			t.Errorf("cause-gated rule fired for wrong cause: %v", recs)
		}
	}
}

func TestRuleEngineApplyDeduplicates(t *testing.T) {
	engine := &RuleEngine{rules: []Rule{
		{ID: "dup", Recommendations: []string{"already present", "new advice"}},
	}, logger: slog.Default()}

	recs := engine.Apply([]string{"already present"}, models.CauseUnknown, nil, models.SeverityOK)
	if len(recs) != 2 {
		t.Errorf("expected deduplicated overlay, got %v", recs)
	}
}

func TestRuleEngineNilIsNoop(t *testing.T) {
	var engine *RuleEngine
	base := []string{"keep me"}
	got := engine.Apply(base, models.CauseUnknown, nil, models.SeverityCritical)
	if len(got) != 1 || got[0] != "keep me" {
		t.Errorf("nil engine must pass base through, got %v", got)
	}
}

func TestRuleEngineNoFile(t *testing.T) {
	engine, err := NewRuleEngine("non-existent", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if engine != nil {
		t.Fatal("expected nil engine when file missing")
	}
}
