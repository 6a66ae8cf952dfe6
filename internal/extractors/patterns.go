package extractors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vigilstack/vigil-incident/internal/models"
)

var (
	timeoutRe  = regexp.MustCompile(`(?i)timed out|timeout`)
	latencyRe  = regexp.MustCompile(`(?i)duration|latency`)
	msTokenRe  = regexp.MustCompile(`(?i)(\d+)\s*ms`)
	retryRe    = regexp.MustCompile(`(?i)connection reset|retry|attempt \d+`)
	resourceRe = regexp.MustCompile(`(?i)memory|heap|resource`)
	levelRe    = regexp.MustCompile(`\b(ERROR|CRITICAL|FATAL)\b`)
)

// PatternStats aggregates per-window counters used for the investigation
// summary line.
type PatternStats struct {
	TotalEvents  int
	ParsedEvents int
	ErrorCount   int
	WarningCount int
	Timeouts     int
	LatencyHits  int
	Retries      int
	Resources    int
	AvgLatencyMS float64
}

// Summary renders the stats the way the investigation trail reports them.
func (s PatternStats) Summary() string {
	parts := make([]string, 0, 4)
	if s.ErrorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.ErrorCount))
	}
	if s.WarningCount > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", s.WarningCount))
	}
	if s.Timeouts > 0 {
		parts = append(parts, fmt.Sprintf("%d timeouts", s.Timeouts))
	}
	if s.LatencyHits > 0 {
		parts = append(parts, fmt.Sprintf("avg latency %.0fms", s.AvgLatencyMS))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Analyzed %d events: no anomalies detected", s.TotalEvents)
	}
	return fmt.Sprintf("Analyzed %d events: %s", s.TotalEvents, strings.Join(parts, ", "))
}

// PatternExtractor scans log events for the fixed domain pattern families:
// timeout, latency, retry storm, resource pressure, and a generic
// level-based error fallback.
type PatternExtractor struct{}

// NewPatternExtractor constructs a pattern evidence extractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract tests every event against the pattern families and returns the
// categorised findings. A single event may contribute to several families,
// but at most one finding per family, so one log line is never counted
// twice within a category.
func (e *PatternExtractor) Extract(events []models.LogEvent) ([]models.Finding, PatternStats) {
	findings := make([]models.Finding, 0)
	stats := PatternStats{TotalEvents: len(events)}

	totalLatency := 0
	for _, ev := range events {
		payload, _ := ExtractPayload(ev.Message)

		text := ev.Message
		scenario := ""
		message := ev.Message
		level := ""
		if payload != nil {
			stats.ParsedEvents++
			text = strings.TrimSpace(payload.Message + " " + payload.Event)
			if text == "" {
				text = ev.Message
			}
			if payload.Message != "" {
				message = payload.Message
			}
			scenario = payload.Scenario
			if scenario == "" {
				scenario = "unknown"
			}
			level = payload.Level
		} else if m := levelRe.FindString(ev.Message); m != "" {
			level = m
		}

		switch models.ClassifySeverity(level) {
		case models.SeverityHigh, models.SeverityCritical:
			stats.ErrorCount++
		case models.SeverityWarning:
			stats.WarningCount++
		}

		matched := false

		if timeoutRe.MatchString(text) {
			matched = true
			stats.Timeouts++
			findings = append(findings, models.Finding{
				Kind:      models.FindingTimeout,
				Timestamp: ev.Timestamp,
				Message:   message,
				Scenario:  scenario,
			})
		}

		if ms, ok := latencyMagnitude(text); ok {
			matched = true
			stats.LatencyHits++
			totalLatency += ms
			findings = append(findings, models.Finding{
				Kind:      models.FindingLatency,
				Timestamp: ev.Timestamp,
				Message:   message,
				Scenario:  scenario,
				LatencyMS: ms,
			})
		}

		if retryRe.MatchString(text) {
			matched = true
			stats.Retries++
			findings = append(findings, models.Finding{
				Kind:      models.FindingRetry,
				Timestamp: ev.Timestamp,
				Message:   message,
				Scenario:  scenario,
			})
		}

		if resourceRe.MatchString(text) {
			matched = true
			stats.Resources++
			findings = append(findings, models.Finding{
				Kind:      models.FindingResource,
				Timestamp: ev.Timestamp,
				Message:   message,
				Scenario:  scenario,
			})
		}

		if !matched && models.ClassifySeverity(level).Rank() >= models.SeverityHigh.Rank() {
			findings = append(findings, models.Finding{
				Kind:      models.FindingError,
				Timestamp: ev.Timestamp,
				Message:   message,
				Scenario:  scenario,
			})
		}
	}

	if stats.LatencyHits > 0 {
		stats.AvgLatencyMS = float64(totalLatency) / float64(stats.LatencyHits)
	}
	return findings, stats
}

// latencyMagnitude reports whether the text carries a latency signal and
// extracts the first "<integer> ms" token as the magnitude. Lines that only
// mention duration/latency without a numeric token still count, with a zero
// magnitude.
func latencyMagnitude(text string) (int, bool) {
	m := msTokenRe.FindStringSubmatch(text)
	if m != nil {
		ms, err := strconv.Atoi(m[1])
		if err == nil {
			return ms, true
		}
	}
	if latencyRe.MatchString(text) {
		return 0, true
	}
	return 0, false
}
