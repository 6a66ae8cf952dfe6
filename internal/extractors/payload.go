package extractors

import (
	"encoding/json"
	"strings"

	"github.com/vigilstack/vigil-incident/internal/models"
)

// ExtractPayload recovers a structured record from a raw log line. Two wire
// shapes are supported:
//
//  1. Bare JSON: the text, from the first '{' onward, parses as JSON. Any
//     prefix before the brace is ignored.
//  2. Tab-delimited backend-prefixed: exactly four tab-separated segments
//     [LEVEL]\tTIMESTAMP\tREQUEST_ID\tJSON. The second segment is returned
//     as the backend timestamp prefix so log lines can be cross-referenced
//     against the storage console, even when the JSON segment is malformed.
//
// A nil payload means the line carries no structured record. Parsing never
// fails to the caller; malformed input yields (nil, prefix-if-any).
func ExtractPayload(raw string) (*models.StructuredPayload, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}

	if strings.Count(raw, "\t") >= 3 {
		return extractTabDelimited(raw)
	}

	idx := strings.Index(raw, "{")
	if idx == -1 {
		return nil, ""
	}
	payload := parsePayload(raw[idx:])
	return payload, ""
}

func extractTabDelimited(raw string) (*models.StructuredPayload, string) {
	parts := strings.SplitN(raw, "\t", 4)
	if len(parts) < 4 {
		return nil, ""
	}

	prefix := strings.TrimSpace(parts[1])
	payload := parsePayload(strings.TrimSpace(parts[3]))
	if payload == nil {
		// The final segment can carry its own preamble before the JSON
		// object. Rescan the whole line from the first brace so the
		// record is still recovered.
		if idx := strings.Index(raw, "{"); idx != -1 {
			payload = parsePayload(raw[idx:])
		}
	}
	if payload == nil {
		return nil, prefix
	}
	payload.BackendPrefix = prefix
	return payload, prefix
}

func parsePayload(candidate string) *models.StructuredPayload {
	var payload models.StructuredPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil
	}
	return &payload
}
