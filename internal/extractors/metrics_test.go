package extractors

import (
	"testing"

	"github.com/vigilstack/vigil-incident/internal/models"
)

func anomalyOfType(anomalies []models.MetricAnomaly, t models.AnomalyType) (models.MetricAnomaly, bool) {
	for _, a := range anomalies {
		if a.Type == t {
			return a, true
		}
	}
	return models.MetricAnomaly{}, false
}

func TestDetectLatencySpikeTiers(t *testing.T) {
	detector := NewAnomalyDetector(DefaultThresholds())

	series := map[models.MetricCategory][]models.Datapoint{
		models.CategoryLatency: {{Maximum: 1200}, {Maximum: 1800}},
	}
	anomalies := detector.Detect(series)
	spike, ok := anomalyOfType(anomalies, models.AnomalyLatencySpike)
	if !ok {
		t.Fatal("expected latency spike")
	}
	if spike.Value != 1800 || spike.Threshold != 1500 {
		t.Errorf("spike = %+v", spike)
	}
	if spike.Severity != models.SeverityWarning {
		t.Errorf("severity = %s, want warning below escalation factor", spike.Severity)
	}

	// Past threshold*factor the tier escalates to high.
	series[models.CategoryLatency] = []models.Datapoint{{Maximum: 3100}}
	anomalies = detector.Detect(series)
	spike, _ = anomalyOfType(anomalies, models.AnomalyLatencySpike)
	if spike.Severity != models.SeverityHigh {
		t.Errorf("severity = %s, want high past escalation factor", spike.Severity)
	}
}

func TestDetectThresholdIsStrict(t *testing.T) {
	detector := NewAnomalyDetector(DefaultThresholds())
	series := map[models.MetricCategory][]models.Datapoint{
		models.CategoryLatency: {{Maximum: 1500}},
		models.CategoryCPU:     {{Maximum: 80}},
		models.CategoryMemory:  {{Maximum: 200}},
	}
	if anomalies := detector.Detect(series); len(anomalies) != 0 {
		t.Errorf("values at threshold must not trigger, got %+v", anomalies)
	}
}

func TestDetectErrorRateAlwaysHigh(t *testing.T) {
	detector := NewAnomalyDetector(DefaultThresholds())
	series := map[models.MetricCategory][]models.Datapoint{
		models.CategoryErrors:      {{Sum: 3}, {Sum: 2}},
		models.CategoryInvocations: {{Sum: 20}, {Sum: 20}},
	}

	anomalies := detector.Detect(series)
	spike, ok := anomalyOfType(anomalies, models.AnomalyErrorRateSpike)
	if !ok {
		t.Fatal("expected error rate spike at rate 0.125")
	}
	if spike.Value != 0.125 {
		t.Errorf("rate = %v, want 0.125", spike.Value)
	}
	if spike.Severity != models.SeverityHigh {
		t.Errorf("error rate severity = %s, want high regardless of magnitude", spike.Severity)
	}
}

func TestDetectSkipsEmptyCategories(t *testing.T) {
	detector := NewAnomalyDetector(DefaultThresholds())

	if anomalies := detector.Detect(nil); len(anomalies) != 0 {
		t.Errorf("nil series produced anomalies: %+v", anomalies)
	}

	// Errors without invocations cannot compute a rate.
	series := map[models.MetricCategory][]models.Datapoint{
		models.CategoryErrors: {{Sum: 100}},
	}
	if anomalies := detector.Detect(series); len(anomalies) != 0 {
		t.Errorf("errors without invocations produced anomalies: %+v", anomalies)
	}
}

func TestDetectCPUAndMemory(t *testing.T) {
	detector := NewAnomalyDetector(Thresholds{CPUPct: 50, MemoryMB: 100, EscalationFactor: 2})
	series := map[models.MetricCategory][]models.Datapoint{
		models.CategoryCPU:    {{Maximum: 120}},
		models.CategoryMemory: {{Maximum: 150}},
	}

	anomalies := detector.Detect(series)
	cpu, ok := anomalyOfType(anomalies, models.AnomalyCPUSpike)
	if !ok || cpu.Severity != models.SeverityHigh {
		t.Errorf("cpu anomaly = %+v, ok=%t", cpu, ok)
	}
	mem, ok := anomalyOfType(anomalies, models.AnomalyMemorySpike)
	if !ok || mem.Severity != models.SeverityWarning {
		t.Errorf("memory anomaly = %+v, ok=%t", mem, ok)
	}
}

func TestThresholdDefaultsApplied(t *testing.T) {
	detector := NewAnomalyDetector(Thresholds{})
	got := detector.Thresholds()
	if got != DefaultThresholds() {
		t.Errorf("zero thresholds = %+v, want defaults", got)
	}
}
