package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vigilstack/vigil-incident/internal/engine"
	"github.com/vigilstack/vigil-incident/internal/models"
	"github.com/vigilstack/vigil-incident/internal/summarizer"
)

type fakeTelemetry struct{}

func (fakeTelemetry) FetchLogs(ctx context.Context, start, end time.Time) ([]models.LogEvent, error) {
	return nil, nil
}

func (fakeTelemetry) FetchMetrics(ctx context.Context, start, end time.Time, categories []models.MetricCategory) (map[models.MetricCategory][]models.Datapoint, error) {
	return nil, nil
}

type fakeSource struct {
	incidents []models.Incident
}

func (f *fakeSource) Incidents() []models.Incident { return f.incidents }

func (f *fakeSource) IncidentByID(id string) (models.Incident, bool) {
	for _, inc := range f.incidents {
		if inc.ID == id {
			return inc, true
		}
	}
	return models.Incident{}, false
}

type fakeArchive struct {
	enabled   bool
	incidents []models.Incident
	err       error
	stored    []models.IncidentPattern
}

func (f *fakeArchive) Enabled() bool { return f.enabled }

func (f *fakeArchive) ListIncidents(ctx context.Context) ([]models.Incident, error) {
	return f.incidents, f.err
}

func (f *fakeArchive) StorePatterns(ctx context.Context, patterns []models.IncidentPattern) error {
	f.stored = append(f.stored, patterns...)
	return nil
}

func newTestService(source IncidentSource, archive IncidentArchive) *InvestigationService {
	pipeline := engine.NewPipeline(nil, fakeTelemetry{}, nil, nil, nil, nil, summarizer.Budget{})
	return NewInvestigationService(nil, pipeline, source, archive)
}

func TestInvestigateValidation(t *testing.T) {
	service := newTestService(nil, nil)
	now := time.Now()

	cases := []InvestigationRequest{
		{},                                       // missing window
		{Start: now},                             // missing end
		{Start: now, End: now},                   // empty window
		{Start: now, End: now.Add(-time.Minute)}, // inverted window
	}
	for i, req := range cases {
		if _, err := service.Investigate(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: err = %v, want ErrInvalidRequest", i, err)
		}
	}
}

func TestInvestigateDefaults(t *testing.T) {
	service := newTestService(nil, nil)
	end := time.Now().UTC()

	incident, err := service.Investigate(context.Background(), InvestigationRequest{
		Start: end.Add(-15 * time.Minute),
		End:   end,
	})
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if incident.ID == "" {
		t.Error("expected generated incident ID")
	}
	if incident.Alert.Service != "unknown-service" {
		t.Errorf("service default = %q", incident.Alert.Service)
	}
	if incident.Alert.Type != "manual_investigation" {
		t.Errorf("alert type default = %q", incident.Alert.Type)
	}
}

func TestIncidentsMergesArchive(t *testing.T) {
	source := &fakeSource{incidents: []models.Incident{{ID: "INC-1"}}}
	archive := &fakeArchive{enabled: true, incidents: []models.Incident{
		{ID: "INC-1"}, // duplicate of the in-memory one
		{ID: "INC-0"},
	}}
	service := newTestService(source, archive)

	incidents, err := service.Incidents(context.Background())
	if err != nil {
		t.Fatalf("incidents: %v", err)
	}
	if len(incidents) != 2 {
		t.Fatalf("expected deduplicated merge of 2, got %d: %+v", len(incidents), incidents)
	}
	if incidents[0].ID != "INC-1" || incidents[1].ID != "INC-0" {
		t.Errorf("incidents = %+v", incidents)
	}
}

func TestIncidentsArchiveFailureKeepsLocal(t *testing.T) {
	source := &fakeSource{incidents: []models.Incident{{ID: "INC-1"}}}
	archive := &fakeArchive{enabled: true, err: errors.New("archive down")}
	service := newTestService(source, archive)

	incidents, err := service.Incidents(context.Background())
	if err != nil {
		t.Fatalf("archive failure must not fail the listing: %v", err)
	}
	if len(incidents) != 1 {
		t.Errorf("incidents = %+v", incidents)
	}
}

func TestPatternsStoredToArchive(t *testing.T) {
	source := &fakeSource{incidents: []models.Incident{
		{ID: "INC-1", RootCause: models.RootCauseHypothesis{Cause: models.CauseTimeoutConfiguration, Confidence: 0.7}},
		{ID: "INC-2", RootCause: models.RootCauseHypothesis{Cause: models.CauseTimeoutConfiguration, Confidence: 0.9}},
	}}
	archive := &fakeArchive{enabled: true}
	service := newTestService(source, archive)

	mined, err := service.Patterns(context.Background())
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}
	if len(mined) != 1 || mined[0].Cause != models.CauseTimeoutConfiguration {
		t.Fatalf("mined = %+v", mined)
	}
	if len(archive.stored) != 1 {
		t.Fatalf("archive received %d patterns, want 1", len(archive.stored))
	}
	if archive.stored[0].Occurrences != 2 {
		t.Errorf("stored occurrences = %d", archive.stored[0].Occurrences)
	}
}

func TestIncidentLookup(t *testing.T) {
	source := &fakeSource{incidents: []models.Incident{{ID: "INC-1"}}}
	archive := &fakeArchive{enabled: true, incidents: []models.Incident{{ID: "INC-0"}}}
	service := newTestService(source, archive)

	if _, found, err := service.Incident(context.Background(), "INC-1"); err != nil || !found {
		t.Errorf("memory lookup: found=%t err=%v", found, err)
	}
	if _, found, err := service.Incident(context.Background(), "INC-0"); err != nil || !found {
		t.Errorf("archive lookup: found=%t err=%v", found, err)
	}
	if _, found, err := service.Incident(context.Background(), "INC-9"); err != nil || found {
		t.Errorf("missing lookup: found=%t err=%v", found, err)
	}
	if _, _, err := service.Incident(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty id err = %v", err)
	}
}
