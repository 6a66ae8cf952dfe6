package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vigilstack/vigil-incident/internal/extractors"
	"github.com/vigilstack/vigil-incident/internal/metrics"
	"github.com/vigilstack/vigil-incident/internal/models"
	"github.com/vigilstack/vigil-incident/internal/summarizer"
)

// TelemetrySource is the backend the pipeline pulls raw signals from.
// Transient failures surface as errors here and are swallowed into empty
// results inside the pipeline.
type TelemetrySource interface {
	FetchLogs(ctx context.Context, start, end time.Time) ([]models.LogEvent, error)
	FetchMetrics(ctx context.Context, start, end time.Time, categories []models.MetricCategory) (map[models.MetricCategory][]models.Datapoint, error)
}

// Pipeline runs the escalated analysis stage: fetch the window, extract
// findings and anomalies, infer a root cause, optionally phrase a summary,
// and assemble the incident. It carries no state between runs.
type Pipeline struct {
	logger     *slog.Logger
	source     TelemetrySource
	patterns   *extractors.PatternExtractor
	detector   *extractors.AnomalyDetector
	inference  *InferenceEngine
	rules      *RuleEngine
	summarizer summarizer.Summarizer
	budget     summarizer.Budget
}

// NewPipeline constructs an analysis pipeline. The summarizer may be nil,
// in which case incidents carry the deterministic fallback summary.
func NewPipeline(
	logger *slog.Logger,
	source TelemetrySource,
	detector *extractors.AnomalyDetector,
	inference *InferenceEngine,
	rules *RuleEngine,
	summ summarizer.Summarizer,
	budget summarizer.Budget,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		detector = extractors.NewAnomalyDetector(extractors.Thresholds{})
	}
	if inference == nil {
		inference = NewInferenceEngine(logger, InferenceConfig{})
	}
	return &Pipeline{
		logger:     logger,
		source:     source,
		patterns:   extractors.NewPatternExtractor(),
		detector:   detector,
		inference:  inference,
		rules:      rules,
		summarizer: summ,
		budget:     budget,
	}
}

const (
	logAgent     = "LogInvestigator"
	metricsAgent = "MetricsAnalyst"
)

// Investigate analyses the [start, end) window and assembles an incident for
// the triggering alert. Telemetry fetch failures degrade to empty inputs and
// are recorded in the thinking log; the only error path is a cancelled
// context.
func (p *Pipeline) Investigate(ctx context.Context, incidentID string, alert models.Alert, start, end time.Time) (models.Incident, error) {
	var logTrail, metricTrail models.ThinkingLog
	logTrail.Append(logAgent, "Starting log investigation over last %.0f minutes", end.Sub(start).Minutes())
	metricTrail.Append(metricsAgent, "Starting metrics analysis for escalated window")

	var (
		events []models.LogEvent
		series map[models.MetricCategory][]models.Datapoint
	)

	g, fetchCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, err := p.source.FetchLogs(fetchCtx, start, end)
		if err != nil {
			p.logger.Warn("log fetch failed, analysing empty window", slog.Any("error", err))
			logTrail.Append(logAgent, "Log fetch failed (%v), continuing with no events", err)
			return nil
		}
		events = fetched
		return nil
	})
	g.Go(func() error {
		fetched, err := p.source.FetchMetrics(fetchCtx, start, end, models.AllMetricCategories())
		if err != nil {
			p.logger.Warn("metric fetch failed, analysing empty window", slog.Any("error", err))
			metricTrail.Append(metricsAgent, "Metric fetch failed (%v), continuing with no datapoints", err)
			return nil
		}
		series = fetched
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Incident{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Incident{}, err
	}

	logTrail.Append(logAgent, "Retrieved %d log events", len(events))
	findings, stats := p.patterns.Extract(events)
	logTrail.Append(logAgent, "Pattern analysis complete: %d errors, %d warnings, %d timeouts, %d latency patterns, %d retry sequences, %d resource events",
		stats.ErrorCount, stats.WarningCount, stats.Timeouts, stats.LatencyHits, stats.Retries, stats.Resources)
	logSummary := stats.Summary()
	logTrail.Append(logAgent, "Investigation summary: %s", logSummary)

	anomalies := p.detector.Detect(series)
	metricSummary := summarizeMetrics(series)
	metricTrail.Append(metricsAgent, "Fetched %d metric categories", len(series))
	for _, a := range anomalies {
		metricTrail.Append(metricsAgent, "ANOMALY: %s - %.3f over threshold %.3f (%s)", a.Type, a.Value, a.Threshold, a.Severity)
	}
	metricTrail.Append(metricsAgent, "Analysis complete. Found %d anomalies", len(anomalies))

	severity := models.MaxSeverity(append(anomalySeverities(anomalies), alert.Severity)...)

	if len(findings) == 0 && len(anomalies) == 0 {
		// Escalation normally implies evidence; an empty escalated window
		// signals an inconsistency between the baseline and escalated views.
		logTrail.Append(logAgent, "No evidence in escalated window despite baseline alert; windows disagree")
	}

	result := p.inference.Infer(findings, anomalies)
	recommendations := p.rules.Apply(result.Recommendations, result.Primary.Cause, findings, severity)

	now := time.Now().UTC()
	note := BuildIncidentNote(result.Primary.Cause, logSummary, metricSummary, recommendations, now)

	var trail models.ThinkingLog
	trail.Merge(logTrail)
	trail.Merge(metricTrail)
	trail.Merge(result.Trail)

	summary := p.summarize(ctx, severity, logSummary, anomalies, result.Hypotheses, &trail, note)

	recommendedAction := "Monitor system for additional signals"
	if len(recommendations) > 0 {
		recommendedAction = recommendations[0]
	}

	return models.Incident{
		ID:                incidentID,
		CreatedAt:         now,
		Alert:             alert,
		Findings:          findings,
		Anomalies:         anomalies,
		RootCause:         result.Primary,
		Hypotheses:        result.Hypotheses,
		Recommendations:   recommendations,
		RecommendedAction: recommendedAction,
		Note:              note,
		Summary:           summary,
		ThinkingLog:       trail,
	}, nil
}

const rcaAgent = "RCAAgent"

func (p *Pipeline) summarize(ctx context.Context, severity models.Severity, logSummary string, anomalies []models.MetricAnomaly, hypotheses []models.RootCauseHypothesis, trail *models.ThinkingLog, note string) models.IncidentSummary {
	if p.summarizer == nil {
		return summarizer.FallbackSummary(logSummary, severity)
	}

	compact, err := summarizer.BuildCompactContext(severity, logSummary, anomalies, hypotheses, *trail, p.budget)
	if err != nil {
		p.logger.Warn("compact context build failed", slog.Any("error", err))
		trail.Append(rcaAgent, "Failed to build summarizer context, using fallback summary")
		return summarizer.FallbackSummary(logSummary, severity)
	}

	trail.Append(rcaAgent, "Calling external summarizer for RCA synthesis")
	started := time.Now()
	text, err := p.summarizer.Summarize(ctx, compact, summarizer.TrimText(note, p.budget))
	metrics.ObserveSummarizer(time.Since(started), outcome(err))
	if err != nil {
		p.logger.Warn("summarizer call failed", slog.Any("error", err))
		trail.Append(rcaAgent, "Summarizer unavailable (%v), using fallback summary", err)
		return summarizer.FallbackSummary(logSummary, severity)
	}

	summary := summarizer.ParseSummary(text, severity)
	trail.Append(rcaAgent, "Completed RCA analysis")
	return summary
}

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}

func summarizeMetrics(series map[models.MetricCategory][]models.Datapoint) models.MetricSummary {
	summary := models.MetricSummary{}

	if points := series[models.CategoryLatency]; len(points) > 0 {
		summary.DurationMaxMS = maxDatapoint(points)
	}
	if points := series[models.CategoryCPU]; len(points) > 0 {
		summary.CPUMaxPct = maxDatapoint(points)
	}
	if points := series[models.CategoryMemory]; len(points) > 0 {
		summary.MemoryMaxMB = maxDatapoint(points)
	}

	errs := series[models.CategoryErrors]
	invocations := series[models.CategoryInvocations]
	if len(invocations) > 0 {
		for _, p := range invocations {
			summary.Invocations += p.Sum
		}
	}
	if len(errs) > 0 && summary.Invocations > 0 {
		totalErrors := 0.0
		for _, p := range errs {
			totalErrors += p.Sum
		}
		summary.ErrorRate = totalErrors / summary.Invocations
	}

	return summary
}

func maxDatapoint(points []models.Datapoint) float64 {
	max := points[0].Maximum
	for _, p := range points[1:] {
		if p.Maximum > max {
			max = p.Maximum
		}
	}
	return max
}

func anomalySeverities(anomalies []models.MetricAnomaly) []models.Severity {
	out := make([]models.Severity, 0, len(anomalies))
	for _, a := range anomalies {
		out = append(out, a.Severity)
	}
	return out
}
