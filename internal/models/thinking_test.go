package models

import (
	"encoding/json"
	"testing"
)

func TestThinkingLogAppendOrder(t *testing.T) {
	var log ThinkingLog
	log.Append("LogInvestigator", "step %d", 1)
	log.Append("MetricsAnalyst", "step %d", 2)
	log.Append("RootCauseAgent", "step %d", 3)

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "step 1" || entries[2].Message != "step 3" {
		t.Errorf("entries out of order: %+v", entries)
	}
	if entries[1].Agent != "MetricsAnalyst" {
		t.Errorf("attribution lost: %q", entries[1].Agent)
	}
}

func TestThinkingLogMergePreservesOrder(t *testing.T) {
	var a, b ThinkingLog
	a.Append("x", "first")
	b.Append("y", "second")
	b.Append("y", "third")

	a.Merge(b)
	lines := a.Lines()
	want := []string{"[x] first", "[y] second", "[y] third"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestThinkingLogTail(t *testing.T) {
	var log ThinkingLog
	for i := 0; i < 5; i++ {
		log.Append("a", "entry %d", i)
	}

	tail := log.Tail(2)
	if len(tail) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(tail))
	}
	if tail[0].Message != "entry 3" || tail[1].Message != "entry 4" {
		t.Errorf("tail returned wrong entries: %+v", tail)
	}

	if got := log.Tail(10); len(got) != 5 {
		t.Errorf("Tail(10) on 5 entries returned %d", len(got))
	}
	if got := log.Tail(0); got != nil {
		t.Errorf("Tail(0) = %v, want nil", got)
	}
}

func TestThinkingLogJSONRoundTrip(t *testing.T) {
	var log ThinkingLog
	log.Append("a", "hello")

	data, err := json.Marshal(log)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored ThinkingLog
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Len() != 1 || restored.Entries()[0].Message != "hello" {
		t.Errorf("round trip lost entries: %+v", restored.Entries())
	}

	var empty ThinkingLog
	data, err = json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal empty: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("empty log marshals to %s, want []", data)
	}
}
