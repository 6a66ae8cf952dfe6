package extractors

import (
	"github.com/vigilstack/vigil-incident/internal/models"
)

// Thresholds is the static threshold table the detector compares against.
// Values are injected at construction rather than read from process state.
type Thresholds struct {
	LatencyMS float64 `yaml:"latencyMs"`
	ErrorRate float64 `yaml:"errorRate"`
	CPUPct    float64 `yaml:"cpuPercent"`
	MemoryMB  float64 `yaml:"memoryMb"`
	// EscalationFactor decides the severity tier: a value more than
	// threshold*factor over escalates from warning to high.
	EscalationFactor float64 `yaml:"escalationFactor"`
}

// DefaultThresholds returns the stock threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LatencyMS:        1500,
		ErrorRate:        0.1,
		CPUPct:           80,
		MemoryMB:         200,
		EscalationFactor: 2.0,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	def := DefaultThresholds()
	if t.LatencyMS <= 0 {
		t.LatencyMS = def.LatencyMS
	}
	if t.ErrorRate <= 0 {
		t.ErrorRate = def.ErrorRate
	}
	if t.CPUPct <= 0 {
		t.CPUPct = def.CPUPct
	}
	if t.MemoryMB <= 0 {
		t.MemoryMB = def.MemoryMB
	}
	if t.EscalationFactor <= 1 {
		t.EscalationFactor = def.EscalationFactor
	}
	return t
}

// AnomalyDetector compares aggregated metric datapoints against the
// configured threshold table.
type AnomalyDetector struct {
	thresholds Thresholds
}

// NewAnomalyDetector constructs a detector with the supplied thresholds.
// Zero-valued fields fall back to the defaults.
func NewAnomalyDetector(t Thresholds) *AnomalyDetector {
	return &AnomalyDetector{thresholds: t.withDefaults()}
}

// Thresholds exposes the effective threshold table.
func (d *AnomalyDetector) Thresholds() Thresholds {
	return d.thresholds
}

// Detect reduces each metric category to a scalar (maximum for latency, cpu
// and memory; summed errors over summed invocations for the error rate) and
// emits an anomaly for every scalar strictly above its threshold. Categories
// without datapoints are silently skipped.
func (d *AnomalyDetector) Detect(series map[models.MetricCategory][]models.Datapoint) []models.MetricAnomaly {
	anomalies := make([]models.MetricAnomaly, 0)

	if points := series[models.CategoryLatency]; len(points) > 0 {
		maxDuration := maxOfMaximum(points)
		if maxDuration > d.thresholds.LatencyMS {
			anomalies = append(anomalies, models.MetricAnomaly{
				Type:      models.AnomalyLatencySpike,
				Value:     maxDuration,
				Threshold: d.thresholds.LatencyMS,
				Severity:  d.tier(maxDuration, d.thresholds.LatencyMS),
			})
		}
	}

	errs := series[models.CategoryErrors]
	invocations := series[models.CategoryInvocations]
	if len(errs) > 0 && len(invocations) > 0 {
		totalErrors := sumOfSum(errs)
		totalInvocations := sumOfSum(invocations)
		rate := 0.0
		if totalInvocations > 0 {
			rate = totalErrors / totalInvocations
		}
		if rate > d.thresholds.ErrorRate {
			// An elevated error rate is always treated as high impact.
			anomalies = append(anomalies, models.MetricAnomaly{
				Type:      models.AnomalyErrorRateSpike,
				Value:     rate,
				Threshold: d.thresholds.ErrorRate,
				Severity:  models.SeverityHigh,
			})
		}
	}

	if points := series[models.CategoryCPU]; len(points) > 0 {
		maxCPU := maxOfMaximum(points)
		if maxCPU > d.thresholds.CPUPct {
			anomalies = append(anomalies, models.MetricAnomaly{
				Type:      models.AnomalyCPUSpike,
				Value:     maxCPU,
				Threshold: d.thresholds.CPUPct,
				Severity:  d.tier(maxCPU, d.thresholds.CPUPct),
			})
		}
	}

	if points := series[models.CategoryMemory]; len(points) > 0 {
		maxMemory := maxOfMaximum(points)
		if maxMemory > d.thresholds.MemoryMB {
			anomalies = append(anomalies, models.MetricAnomaly{
				Type:      models.AnomalyMemorySpike,
				Value:     maxMemory,
				Threshold: d.thresholds.MemoryMB,
				Severity:  d.tier(maxMemory, d.thresholds.MemoryMB),
			})
		}
	}

	return anomalies
}

func (d *AnomalyDetector) tier(value, threshold float64) models.Severity {
	if value > threshold*d.thresholds.EscalationFactor {
		return models.SeverityHigh
	}
	return models.SeverityWarning
}

func maxOfMaximum(points []models.Datapoint) float64 {
	max := points[0].Maximum
	for _, p := range points[1:] {
		if p.Maximum > max {
			max = p.Maximum
		}
	}
	return max
}

func sumOfSum(points []models.Datapoint) float64 {
	total := 0.0
	for _, p := range points {
		total += p.Sum
	}
	return total
}
