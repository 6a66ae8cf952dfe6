package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ThinkingEntry is one attributed reasoning step in the audit trail.
type ThinkingEntry struct {
	Agent   string    `json:"agent"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ThinkingLog is an append-only, ordered audit trail of reasoning steps.
// Entries are never reordered and never deduplicated.
type ThinkingLog struct {
	entries []ThinkingEntry
}

// Append records a reasoning step attributed to an agent.
func (l *ThinkingLog) Append(agent, format string, args ...interface{}) {
	l.entries = append(l.entries, ThinkingEntry{
		Agent:   agent,
		Message: fmt.Sprintf(format, args...),
		Time:    time.Now().UTC(),
	})
}

// Merge appends every entry of other, preserving order and attribution.
func (l *ThinkingLog) Merge(other ThinkingLog) {
	l.entries = append(l.entries, other.entries...)
}

// Entries returns a copy of the trail in append order.
func (l ThinkingLog) Entries() []ThinkingEntry {
	out := make([]ThinkingEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l ThinkingLog) Len() int {
	return len(l.entries)
}

// Tail returns the newest n entries in order. n >= Len returns everything.
func (l ThinkingLog) Tail(n int) []ThinkingEntry {
	if n >= len(l.entries) {
		return l.Entries()
	}
	if n <= 0 {
		return nil
	}
	out := make([]ThinkingEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Lines renders the trail as "[Agent] message" strings.
func (l ThinkingLog) Lines() []string {
	lines := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		lines = append(lines, fmt.Sprintf("[%s] %s", e.Agent, e.Message))
	}
	return lines
}

// MarshalJSON encodes the trail as its entry list.
func (l ThinkingLog) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

// UnmarshalJSON restores a trail from its entry list.
func (l *ThinkingLog) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &l.entries)
}
