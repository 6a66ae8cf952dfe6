package utils

import (
	"testing"
	"time"
)

func TestParseRFC3339(t *testing.T) {
	got, err := ParseRFC3339("2025-11-24T08:51:19Z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 11, 24, 8, 51, 19, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := ParseRFC3339(""); err == nil {
		t.Error("expected error for empty value")
	}
	if _, err := ParseRFC3339("not a time"); err == nil {
		t.Error("expected error for malformed value")
	}
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2025, 11, 24, 8, 0, 0, 0, time.UTC)
	end := start.Add(15 * time.Minute)

	if got := DurationMinutes(start, end); got != 15 {
		t.Errorf("got %v, want 15", got)
	}
	// Swapped arguments still measure the same span.
	if got := DurationMinutes(end, start); got != 15 {
		t.Errorf("swapped got %v, want 15", got)
	}
}
