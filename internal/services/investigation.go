package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vigilstack/vigil-incident/internal/engine"
	"github.com/vigilstack/vigil-incident/internal/metrics"
	"github.com/vigilstack/vigil-incident/internal/models"
	"github.com/vigilstack/vigil-incident/internal/patterns"
	"github.com/vigilstack/vigil-incident/internal/utils"
)

// ErrInvalidRequest marks validation failures so transport layers can map
// them to client errors.
var ErrInvalidRequest = errors.New("invalid request")

// IncidentSource exposes incidents already assembled by the detection loop.
type IncidentSource interface {
	Incidents() []models.Incident
	IncidentByID(id string) (models.Incident, bool)
}

// IncidentArchive reads back persisted incidents and keeps mined patterns
// across restarts.
type IncidentArchive interface {
	Enabled() bool
	ListIncidents(ctx context.Context) ([]models.Incident, error)
	StorePatterns(ctx context.Context, patterns []models.IncidentPattern) error
}

// InvestigationRequest describes a manual investigation of a time window.
type InvestigationRequest struct {
	IncidentID string
	Service    string
	AlertType  string
	Start      time.Time
	End        time.Time
}

// InvestigationService fronts the diagnosis pipeline for on-demand
// investigations and serves incident history and mined patterns.
type InvestigationService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	source    IncidentSource
	archive   IncidentArchive
	miner     *patterns.Miner
	latencies *utils.LatencyTracker
}

// NewInvestigationService constructs the service facade. source and archive
// may be nil when the detection loop or archive are not running.
func NewInvestigationService(logger *slog.Logger, pipeline *engine.Pipeline, source IncidentSource, archive IncidentArchive) *InvestigationService {
	if logger == nil {
		logger = slog.Default()
	}
	var store patterns.Store
	if archive != nil {
		store = archive
	}
	return &InvestigationService{
		logger:    logger,
		pipeline:  pipeline,
		source:    source,
		archive:   archive,
		miner:     patterns.NewMiner(logger, store),
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Investigate runs the diagnosis pipeline over the requested window.
func (s *InvestigationService) Investigate(ctx context.Context, req InvestigationRequest) (models.Incident, error) {
	if s.pipeline == nil {
		return models.Incident{}, errors.New("pipeline not configured")
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return models.Incident{}, fmt.Errorf("%w: start and end are required", ErrInvalidRequest)
	}
	if !req.End.After(req.Start) {
		return models.Incident{}, fmt.Errorf("%w: end must be after start", ErrInvalidRequest)
	}
	if req.IncidentID == "" {
		req.IncidentID = "INC-manual-" + uuid.NewString()[:8]
	}
	if req.Service == "" {
		req.Service = "unknown-service"
	}
	if req.AlertType == "" {
		req.AlertType = "manual_investigation"
	}

	s.logger.Debug("manual investigation requested",
		slog.String("incident_id", req.IncidentID),
		slog.String("service", req.Service),
		slog.Float64("window_minutes", utils.DurationMinutes(req.Start, req.End)))

	alert := models.Alert{
		Timestamp: req.End,
		Type:      req.AlertType,
		Service:   req.Service,
	}

	start := time.Now()
	incident, err := s.pipeline.Investigate(ctx, req.IncidentID, alert, req.Start, req.End)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveInvestigation(duration, metrics.OutcomeError)
		s.logger.Error("investigation failed", slog.Any("error", err))
		return models.Incident{}, err
	}
	s.latencies.Observe(duration)
	metrics.ObserveInvestigation(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("investigation latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}

	return incident, nil
}

// Incidents returns incidents known to the detection loop, supplemented with
// archived incidents not present in memory.
func (s *InvestigationService) Incidents(ctx context.Context) ([]models.Incident, error) {
	var incidents []models.Incident
	seen := make(map[string]struct{})
	if s.source != nil {
		for _, inc := range s.source.Incidents() {
			incidents = append(incidents, inc)
			seen[inc.ID] = struct{}{}
		}
	}

	if s.archive != nil && s.archive.Enabled() {
		archived, err := s.archive.ListIncidents(ctx)
		if err != nil {
			s.logger.Warn("archive listing failed", slog.Any("error", err))
		} else {
			for _, inc := range archived {
				if _, ok := seen[inc.ID]; ok {
					continue
				}
				incidents = append(incidents, inc)
			}
		}
	}

	return incidents, nil
}

// Incident returns a single incident by ID, checking memory before the
// archive.
func (s *InvestigationService) Incident(ctx context.Context, id string) (models.Incident, bool, error) {
	if id == "" {
		return models.Incident{}, false, fmt.Errorf("%w: incident id is required", ErrInvalidRequest)
	}
	if s.source != nil {
		if inc, ok := s.source.IncidentByID(id); ok {
			return inc, true, nil
		}
	}
	if s.archive != nil && s.archive.Enabled() {
		archived, err := s.archive.ListIncidents(ctx)
		if err != nil {
			return models.Incident{}, false, err
		}
		for _, inc := range archived {
			if inc.ID == id {
				return inc, true, nil
			}
		}
	}
	return models.Incident{}, false, nil
}

// Patterns mines recurring failure signatures from known incidents.
func (s *InvestigationService) Patterns(ctx context.Context) ([]models.IncidentPattern, error) {
	incidents, err := s.Incidents(ctx)
	if err != nil {
		return nil, err
	}
	return s.miner.Mine(ctx, incidents)
}
