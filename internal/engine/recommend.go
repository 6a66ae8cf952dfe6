package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vigilstack/vigil-incident/internal/models"
)

// RuleEngine overlays operator-authored remediation text on top of the
// canned per-cause recommendation lists. It cannot add causes or patterns,
// only extra recommendations.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule is a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional attributes for rule matching. Empty attributes
// match everything.
type RuleMatch struct {
	Cause        string   `yaml:"cause"`
	FindingKinds []string `yaml:"finding_kinds"`
	MinSeverity  string   `yaml:"min_severity"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. An empty path or a
// missing file returns a nil engine, which matches nothing.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Apply appends matching rule recommendations to the base list, preserving
// order and skipping duplicates.
func (e *RuleEngine) Apply(base []string, cause models.Cause, findings []models.Finding, severity models.Severity) []string {
	if e == nil {
		return base
	}

	out := appendUnique(nil, base...)
	for _, rule := range e.rules {
		if rule.Match.Cause != "" && !strings.EqualFold(rule.Match.Cause, string(cause)) {
			continue
		}
		if rule.Match.MinSeverity != "" && severity.Rank() < models.Severity(strings.ToLower(rule.Match.MinSeverity)).Rank() {
			continue
		}
		if len(rule.Match.FindingKinds) > 0 && !findingsContain(rule.Match.FindingKinds, findings) {
			continue
		}
		out = appendUnique(out, rule.Recommendations...)
	}
	return out
}

func findingsContain(kinds []string, findings []models.Finding) bool {
	for _, f := range findings {
		for _, kind := range kinds {
			if strings.EqualFold(kind, string(f.Kind)) {
				return true
			}
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
