package session

import (
	"encoding/json"
	"strings"
)

// dedupKey implements §4.7.4.e.2's canonicalization: trim; empty or the
// literal "null" becomes "{}"; otherwise JSON-parse-then-re-stringify to
// normalize whitespace and key order; on parse failure the trimmed
// input is kept as-is.
func dedupKey(name, input string) string {
	return name + ":" + canonicalizeInput(input)
}

func canonicalizeInput(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || trimmed == "null" {
		return "{}"
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return trimmed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return trimmed
	}
	return string(data)
}
