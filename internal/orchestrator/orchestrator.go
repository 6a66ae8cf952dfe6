// Package orchestrator drives the escalation state machine: a cheap baseline
// severity check every poll tick, and the full analysis pipeline only once
// baseline severity crosses the alert threshold.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vigilstack/vigil-incident/internal/engine"
	"github.com/vigilstack/vigil-incident/internal/extractors"
	"github.com/vigilstack/vigil-incident/internal/metrics"
	"github.com/vigilstack/vigil-incident/internal/models"
)

// Config controls the polling cadence and escalation behaviour.
type Config struct {
	PollInterval    time.Duration   `yaml:"pollInterval"`
	BaselineWindow  time.Duration   `yaml:"baselineWindow"`
	EscalatedWindow time.Duration   `yaml:"escalatedWindow"`
	AlertThreshold  models.Severity `yaml:"alertThreshold"`
	Service         string          `yaml:"service"`
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.BaselineWindow <= 0 {
		c.BaselineWindow = 10 * time.Minute
	}
	if c.EscalatedWindow <= 0 {
		c.EscalatedWindow = 15 * time.Minute
	}
	if c.AlertThreshold == "" {
		c.AlertThreshold = models.SeverityWarning
	}
	if c.Service == "" {
		c.Service = "unknown-service"
	}
	return c
}

// Archive persists assembled incidents outside the process. Optional; a nil
// archive keeps incidents in memory only.
type Archive interface {
	StoreIncident(ctx context.Context, incident models.Incident) error
}

// Orchestrator owns the poll loop, the incident counter, and the in-memory
// incident list. Each tick's analysis is stateless with respect to prior
// ticks; repeated identical alerts are not deduplicated.
type Orchestrator struct {
	logger   *slog.Logger
	cfg      Config
	source   engine.TelemetrySource
	detector *extractors.AnomalyDetector
	pipeline *engine.Pipeline
	archive  Archive

	mu        sync.Mutex
	counter   int
	incidents []models.Incident
}

// New constructs an orchestrator. The archive may be nil.
func New(logger *slog.Logger, cfg Config, source engine.TelemetrySource, detector *extractors.AnomalyDetector, pipeline *engine.Pipeline, archive Archive) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		detector = extractors.NewAnomalyDetector(extractors.Thresholds{})
	}
	return &Orchestrator{
		logger:   logger,
		cfg:      cfg.withDefaults(),
		source:   source,
		detector: detector,
		pipeline: pipeline,
		archive:  archive,
	}
}

// Run executes the polling loop until the context is cancelled. A failure
// inside one tick is logged and the loop proceeds to the next tick after the
// normal interval; cancellation is only honoured between ticks.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("starting incident detection polling", slog.Duration("interval", o.cfg.PollInterval))

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	o.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("stopping orchestrator")
			return
		case <-ticker.C:
			o.runTick(ctx)
		}
	}
}

func (o *Orchestrator) runTick(ctx context.Context) {
	start := time.Now()
	incident, err := o.Tick(ctx)
	duration := time.Since(start)

	switch {
	case err != nil:
		metrics.ObserveTick(duration, metrics.OutcomeError)
		o.logger.Error("tick failed", slog.Any("error", err))
	case incident != nil:
		metrics.ObserveTick(duration, metrics.OutcomeSuccess)
		o.logger.Info("incident created",
			slog.String("incident_id", incident.ID),
			slog.String("root_cause", string(incident.RootCause.Cause)),
			slog.String("severity", string(incident.Alert.Severity)))
	default:
		metrics.ObserveTick(duration, metrics.OutcomeSuccess)
	}
}

const baselineAgent = "MetricsAnalyst"

// Tick runs one cycle of the state machine: baseline check, and escalation
// when baseline severity reaches the alert threshold. It returns the
// assembled incident, or nil when the tick stayed idle.
func (o *Orchestrator) Tick(ctx context.Context) (*models.Incident, error) {
	severity, anomalies, baseTrail := o.baseline(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if severity.Rank() < o.cfg.AlertThreshold.Rank() {
		o.logger.Debug("baseline below alert threshold", slog.String("severity", string(severity)))
		return nil, nil
	}

	metrics.IncEscalations()
	o.logger.Info("alert detected, creating incident", slog.String("severity", string(severity)))

	now := time.Now().UTC()
	alert := models.Alert{
		Timestamp: now,
		Type:      "metrics_anomaly",
		Service:   o.cfg.Service,
		Anomalies: anomalies,
		Severity:  severity,
	}

	incidentID := o.nextIncidentID()
	incident, err := o.pipeline.Investigate(ctx, incidentID, alert, now.Add(-o.cfg.EscalatedWindow), now)
	if err != nil {
		return nil, fmt.Errorf("investigate %s: %w", incidentID, err)
	}

	var trail models.ThinkingLog
	trail.Merge(baseTrail)
	trail.Merge(incident.ThinkingLog)
	incident.ThinkingLog = trail

	o.mu.Lock()
	o.incidents = append(o.incidents, incident)
	o.mu.Unlock()
	metrics.IncIncidents()

	if o.archive != nil {
		if err := o.archive.StoreIncident(ctx, incident); err != nil {
			o.logger.Warn("failed to archive incident", slog.String("incident_id", incident.ID), slog.Any("error", err))
		}
	}

	return &incident, nil
}

// baseline runs the cheap per-tick check: coarse anomaly detection over the
// short window plus severity classification of structured log levels.
// Telemetry failures degrade to "no evidence" and are noted in the trail.
func (o *Orchestrator) baseline(ctx context.Context) (models.Severity, []models.MetricAnomaly, models.ThinkingLog) {
	var trail models.ThinkingLog
	end := time.Now().UTC()
	start := end.Add(-o.cfg.BaselineWindow)
	trail.Append(baselineAgent, "Starting metrics analysis for last %.0f minutes", o.cfg.BaselineWindow.Minutes())

	severity := models.SeverityOK

	series, err := o.source.FetchMetrics(ctx, start, end, models.AllMetricCategories())
	if err != nil {
		o.logger.Warn("baseline metric fetch failed", slog.Any("error", err))
		trail.Append(baselineAgent, "Metric fetch failed (%v), treating window as empty", err)
		series = nil
	}
	anomalies := o.detector.Detect(series)
	for _, a := range anomalies {
		severity = models.MergeSeverity(severity, a.Severity)
		trail.Append(baselineAgent, "ANOMALY: %s - %.3f over threshold %.3f", a.Type, a.Value, a.Threshold)
	}

	events, err := o.source.FetchLogs(ctx, start, end)
	if err != nil {
		o.logger.Warn("baseline log fetch failed", slog.Any("error", err))
		trail.Append(baselineAgent, "Log fetch failed (%v), treating window as empty", err)
		events = nil
	}

	warning, high, critical := 0, 0, 0
	for _, ev := range events {
		payload, _ := extractors.ExtractPayload(ev.Message)
		if payload == nil {
			continue
		}
		levelSeverity := models.ClassifySeverity(payload.Level)
		switch levelSeverity {
		case models.SeverityWarning:
			warning++
		case models.SeverityHigh:
			high++
		case models.SeverityCritical:
			critical++
		default:
			continue
		}
		severity = models.MergeSeverity(severity, levelSeverity)
	}

	if warning+high+critical > 0 {
		parts := make([]string, 0, 3)
		if warning > 0 {
			parts = append(parts, fmt.Sprintf("%d warning", warning))
		}
		if high > 0 {
			parts = append(parts, fmt.Sprintf("%d high", high))
		}
		if critical > 0 {
			parts = append(parts, fmt.Sprintf("%d critical", critical))
		}
		trail.Append(baselineAgent, "Detected elevated incident signals from logs in the analysis window: %s", strings.Join(parts, ", "))
	}

	trail.Append(baselineAgent, "Completed baseline analysis. Computed overall severity: %s", severity)
	return severity, anomalies, trail
}

func (o *Orchestrator) nextIncidentID() string {
	o.mu.Lock()
	o.counter++
	seq := o.counter
	o.mu.Unlock()
	return fmt.Sprintf("INC-%d-%s", seq, uuid.NewString()[:8])
}

// Incidents returns a snapshot of every incident assembled so far.
func (o *Orchestrator) Incidents() []models.Incident {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.Incident, len(o.incidents))
	copy(out, o.incidents)
	return out
}

// IncidentByID looks up a single incident.
func (o *Orchestrator) IncidentByID(id string) (models.Incident, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, inc := range o.incidents {
		if inc.ID == id {
			return inc, true
		}
	}
	return models.Incident{}, false
}

// Count returns how many incidents have been created.
func (o *Orchestrator) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.incidents)
}
