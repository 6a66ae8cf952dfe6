package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels operations that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations (pipeline or dependency issues).
	OutcomeError = "error"
)

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigil_incident",
			Name:      "ticks_total",
			Help:      "Total orchestrator poll ticks, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	tickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vigil_incident",
			Name:      "tick_seconds",
			Help:      "Orchestrator tick latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	escalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vigil_incident",
			Name:      "escalations_total",
			Help:      "Baseline checks that crossed the alert threshold.",
		},
	)

	incidentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vigil_incident",
			Name:      "incidents_total",
			Help:      "Incidents assembled by the pipeline.",
		},
	)

	investigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigil_incident",
			Name:      "investigations_total",
			Help:      "Manual investigations handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	investigationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vigil_incident",
			Name:      "investigation_seconds",
			Help:      "Manual investigation latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	summarizerDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vigil_incident",
			Name:      "summarizer_seconds",
			Help:      "External summarizer call latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"outcome"},
	)
)

// Register attaches vigil-incident collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ticksTotal,
		tickDurationSeconds,
		escalationsTotal,
		incidentsTotal,
		investigationsTotal,
		investigationDurationSeconds,
		summarizerDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTick records one orchestrator tick.
func ObserveTick(duration time.Duration, outcome string) {
	ticksTotal.WithLabelValues(normalize(outcome)).Inc()
	tickDurationSeconds.Observe(seconds(duration))
}

// IncEscalations counts a baseline check crossing the alert threshold.
func IncEscalations() {
	escalationsTotal.Inc()
}

// IncIncidents counts an assembled incident.
func IncIncidents() {
	incidentsTotal.Inc()
}

// ObserveInvestigation records a manual investigation duration and outcome.
func ObserveInvestigation(duration time.Duration, outcome string) {
	investigationsTotal.WithLabelValues(normalize(outcome)).Inc()
	investigationDurationSeconds.Observe(seconds(duration))
}

// ObserveSummarizer records an external summarizer call.
func ObserveSummarizer(duration time.Duration, outcome string) {
	summarizerDurationSeconds.WithLabelValues(normalize(outcome)).Observe(seconds(duration))
}

func normalize(outcome string) string {
	if outcome == OutcomeError {
		return OutcomeError
	}
	return OutcomeSuccess
}

func seconds(duration time.Duration) float64 {
	if duration < 0 {
		duration = 0
	}
	return duration.Seconds()
}
