package patterns

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/vigilstack/vigil-incident/internal/models"
)

// Store abstracts persistence for mined patterns.
type Store interface {
	StorePatterns(ctx context.Context, patterns []models.IncidentPattern) error
}

// Miner mines frequency-based failure signatures from incident history.
type Miner struct {
	store  Store
	logger *slog.Logger
}

// NewMiner constructs a Miner; store may be nil for dry runs.
func NewMiner(logger *slog.Logger, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{store: store, logger: logger}
}

// Mine aggregates incidents by root cause and returns the recurring
// signatures, most prevalent first.
func (m *Miner) Mine(ctx context.Context, incidents []models.Incident) ([]models.IncidentPattern, error) {
	if len(incidents) == 0 {
		return nil, nil
	}

	stats := make(map[models.Cause]*causeAggregate)
	for _, incident := range incidents {
		cause := incident.RootCause.Cause
		if cause == "" {
			cause = models.CauseUnknown
		}
		agg, ok := stats[cause]
		if !ok {
			agg = &causeAggregate{
				findingCounts: make(map[string]int),
				anomalyCounts: make(map[string]int),
				peakSeverity:  models.SeverityOK,
			}
			stats[cause] = agg
		}

		agg.count++
		agg.confidenceSum += incident.RootCause.Confidence
		agg.peakSeverity = models.MergeSeverity(agg.peakSeverity, incident.Alert.Severity)
		if incident.CreatedAt.After(agg.lastSeen) {
			agg.lastSeen = incident.CreatedAt
			agg.recommendations = incident.Recommendations
		}
		for _, f := range incident.Findings {
			agg.findingCounts[string(f.Kind)]++
		}
		for _, a := range incident.Anomalies {
			agg.anomalyCounts[string(a.Type)]++
		}
	}

	patterns := make([]models.IncidentPattern, 0, len(stats))
	for cause, agg := range stats {
		patterns = append(patterns, models.IncidentPattern{
			ID:              "pattern-" + string(cause),
			Cause:           cause,
			Name:            string(cause) + " recurrence",
			Description:     "Auto-mined signature from incident history",
			FindingKinds:    topKeys(agg.findingCounts, 3),
			AnomalyTypes:    topKeys(agg.anomalyCounts, 3),
			Occurrences:     agg.count,
			Prevalence:      float64(agg.count) / float64(len(incidents)),
			PeakSeverity:    agg.peakSeverity,
			LastSeen:        agg.lastSeen,
			AvgConfidence:   agg.confidenceSum / float64(agg.count),
			Recommendations: agg.recommendations,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Prevalence != patterns[j].Prevalence {
			return patterns[i].Prevalence > patterns[j].Prevalence
		}
		return patterns[i].Cause < patterns[j].Cause
	})

	if m.store != nil && len(patterns) > 0 {
		if err := m.store.StorePatterns(ctx, patterns); err != nil {
			m.logger.Warn("pattern store failed", slog.Any("error", err))
		}
	}

	return patterns, nil
}

type causeAggregate struct {
	count           int
	confidenceSum   float64
	peakSeverity    models.Severity
	lastSeen        time.Time
	recommendations []string
	findingCounts   map[string]int
	anomalyCounts   map[string]int
}

func topKeys(counts map[string]int, limit int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
