package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vigilstack/vigil-incident/internal/models"
)

// InferenceConfig tunes the evidence weighting.
type InferenceConfig struct {
	// HighLatencyMS is the magnitude above which a latency finding counts as
	// high latency for the downstream-degradation cause.
	HighLatencyMS int `yaml:"highLatencyMs"`
}

// InferenceEngine converts findings and anomalies into a scored set of
// root-cause hypotheses. Confidences are unnormalised heuristics, comparable
// only within a single run.
type InferenceEngine struct {
	logger        *slog.Logger
	highLatencyMS int
}

// NewInferenceEngine constructs an inference engine.
func NewInferenceEngine(logger *slog.Logger, cfg InferenceConfig) *InferenceEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HighLatencyMS <= 0 {
		cfg.HighLatencyMS = 2000
	}
	return &InferenceEngine{logger: logger, highLatencyMS: cfg.HighLatencyMS}
}

// InferenceResult carries the scored hypotheses, the selected primary, the
// ordered remediation list, and the reasoning trail of the run.
type InferenceResult struct {
	Primary         models.RootCauseHypothesis
	Hypotheses      []models.RootCauseHypothesis
	Recommendations []string
	Trail           models.ThinkingLog
}

const inferenceAgent = "RootCauseAgent"

// Infer scores every cause in the catalogue against the supplied evidence
// and selects the strictly highest-confidence hypothesis; ties resolve in
// catalogue order. With no matching evidence the result is unknown_anomaly
// at confidence 0.1, never an error.
func (e *InferenceEngine) Infer(findings []models.Finding, anomalies []models.MetricAnomaly) InferenceResult {
	var trail models.ThinkingLog
	trail.Append(inferenceAgent, "Starting root cause analysis")
	trail.Append(inferenceAgent, "Input data - findings: %d, metric anomalies: %d", len(findings), len(anomalies))

	timeoutCount := countFindings(findings, models.FindingTimeout)
	retryCount := countFindings(findings, models.FindingRetry)
	highLatencyCount := 0
	for _, f := range findings {
		if f.Kind == models.FindingLatency && f.LatencyMS > e.highLatencyMS {
			highLatencyCount++
		}
	}
	memoryFindingCount := 0
	for _, f := range findings {
		if f.Kind == models.FindingResource && strings.Contains(strings.ToLower(f.Message), "memory") {
			memoryFindingCount++
		}
	}

	latencyAnomaly := countAnomalies(anomalies, models.AnomalyLatencySpike)
	errorRateAnomalies := countAnomalies(anomalies, models.AnomalyErrorRateSpike)
	cpuAnomalies := countAnomalies(anomalies, models.AnomalyCPUSpike)
	memoryAnomalies := countAnomalies(anomalies, models.AnomalyMemorySpike)

	hypotheses := make([]models.RootCauseHypothesis, 0, 4)

	if timeoutCount > 0 || latencyAnomaly > 0 {
		confidence := 0.3 * float64(timeoutCount)
		if latencyAnomaly > 0 {
			confidence += 0.4
		}
		hypotheses = append(hypotheses, models.RootCauseHypothesis{
			Cause:      models.CauseTimeoutConfiguration,
			Confidence: confidence,
			Evidence:   fmt.Sprintf("%d timeout findings, %d latency anomalies", timeoutCount, latencyAnomaly),
		})
		trail.Append(inferenceAgent, "Timeout pattern detected: %d timeout errors, latency spike in metrics: %t", timeoutCount, latencyAnomaly > 0)
	}

	if highLatencyCount > 0 || retryCount > 0 {
		confidence := capConfidence(0.2*float64(highLatencyCount) + 0.3*float64(retryCount))
		hypotheses = append(hypotheses, models.RootCauseHypothesis{
			Cause:      models.CauseDownstreamDegraded,
			Confidence: confidence,
			Evidence:   fmt.Sprintf("%d high latency findings, %d retry sequences", highLatencyCount, retryCount),
		})
		trail.Append(inferenceAgent, "Downstream issues detected: %d high latency events, %d retry sequences", highLatencyCount, retryCount)
	}

	if memoryFindingCount > 0 || cpuAnomalies > 0 || memoryAnomalies > 0 {
		confidence := 0.3*float64(memoryFindingCount) + 0.2*float64(cpuAnomalies) + 0.2*float64(memoryAnomalies)
		hypotheses = append(hypotheses, models.RootCauseHypothesis{
			Cause:      models.CauseResourceExhaustion,
			Confidence: confidence,
			Evidence:   fmt.Sprintf("%d memory findings, %d CPU anomalies, %d memory anomalies", memoryFindingCount, cpuAnomalies, memoryAnomalies),
		})
		trail.Append(inferenceAgent, "Resource issues detected: %d memory events, %d CPU spikes, %d memory spikes", memoryFindingCount, cpuAnomalies, memoryAnomalies)
	}

	if errorRateAnomalies > 0 {
		hypotheses = append(hypotheses, models.RootCauseHypothesis{
			Cause:      models.CauseErrorSpike,
			Confidence: capConfidence(0.5 * float64(errorRateAnomalies)),
			Evidence:   fmt.Sprintf("%d error rate anomalies", errorRateAnomalies),
		})
		trail.Append(inferenceAgent, "Error rate spike detected: %d error rate anomalies", errorRateAnomalies)
	}

	primary := selectPrimary(hypotheses)
	if primary.Cause == models.CauseUnknown {
		trail.Append(inferenceAgent, "No clear root cause pattern identified")
	} else {
		trail.Append(inferenceAgent, "Primary root cause determined: %s (confidence: %.2f)", primary.Cause, primary.Confidence)
	}

	recommendations := Recommendations(primary.Cause)
	trail.Append(inferenceAgent, "Generated %d recommendations", len(recommendations))

	return InferenceResult{
		Primary:         primary,
		Hypotheses:      hypotheses,
		Recommendations: recommendations,
		Trail:           trail,
	}
}

// selectPrimary picks the strictly highest confidence; catalogue order
// breaks ties. Empty input yields unknown_anomaly at 0.1.
func selectPrimary(hypotheses []models.RootCauseHypothesis) models.RootCauseHypothesis {
	if len(hypotheses) == 0 {
		return models.RootCauseHypothesis{Cause: models.CauseUnknown, Confidence: 0.1}
	}

	byCause := make(map[models.Cause]models.RootCauseHypothesis, len(hypotheses))
	for _, h := range hypotheses {
		byCause[h.Cause] = h
	}

	var best models.RootCauseHypothesis
	found := false
	for _, cause := range models.CauseCatalogue() {
		h, ok := byCause[cause]
		if !ok {
			continue
		}
		if !found || h.Confidence > best.Confidence {
			best = h
			found = true
		}
	}
	if !found {
		return models.RootCauseHypothesis{Cause: models.CauseUnknown, Confidence: 0.1}
	}
	return best
}

// Recommendations returns the fixed, ordered remediation list for a cause.
// The first entry is the primary recommended action.
func Recommendations(cause models.Cause) []string {
	switch cause {
	case models.CauseTimeoutConfiguration:
		return []string{
			"Increase handler timeout configuration to 15+ seconds",
			"Review downstream service response times",
			"Consider implementing circuit breaker pattern",
		}
	case models.CauseDownstreamDegraded:
		return []string{
			"Check downstream service health and capacity",
			"Implement retry with exponential backoff",
			"Add circuit breaker to prevent cascade failures",
			"Review service dependency SLAs",
		}
	case models.CauseResourceExhaustion:
		return []string{
			"Increase memory allocation",
			"Optimize memory usage in application code",
			"Review object lifecycle and garbage collection",
			"Consider breaking down large operations",
		}
	case models.CauseErrorSpike:
		return []string{
			"Review recent code deployments",
			"Check input validation and error handling",
			"Analyze error patterns for common causes",
			"Implement better error recovery mechanisms",
		}
	default:
		return []string{
			"Continue monitoring for pattern emergence",
			"Review recent changes to system configuration",
			"Check external dependencies and integrations",
		}
	}
}

func countFindings(findings []models.Finding, kind models.FindingKind) int {
	count := 0
	for _, f := range findings {
		if f.Kind == kind {
			count++
		}
	}
	return count
}

func countAnomalies(anomalies []models.MetricAnomaly, t models.AnomalyType) int {
	count := 0
	for _, a := range anomalies {
		if a.Type == t {
			count++
		}
	}
	return count
}

func capConfidence(confidence float64) float64 {
	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}
