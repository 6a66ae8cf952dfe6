package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(100)
	if got := tracker.Percentile(95); got != 0 {
		t.Errorf("empty tracker percentile = %v, want 0", got)
	}

	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}

	if got := tracker.Count(); got != 10 {
		t.Errorf("count = %d, want 10", got)
	}
	if got := tracker.Percentile(0); got != time.Millisecond {
		t.Errorf("p0 = %v, want 1ms", got)
	}
	if got := tracker.Percentile(100); got != 10*time.Millisecond {
		t.Errorf("p100 = %v, want 10ms", got)
	}
	if got := tracker.Percentile(50); got < 4*time.Millisecond || got > 6*time.Millisecond {
		t.Errorf("p50 = %v, want around 5ms", got)
	}
}

func TestLatencyTrackerBoundedMemory(t *testing.T) {
	tracker := NewLatencyTracker(5)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Second)
	}
	if got := tracker.Count(); got != 5 {
		t.Errorf("count = %d, want 5 after overflow", got)
	}
	// The oldest samples were dropped.
	if got := tracker.Percentile(0); got != 6*time.Second {
		t.Errorf("min = %v, want 6s", got)
	}
}
