package core

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	leadingFenceRe  = regexp.MustCompile("^```(?:json)?\n?")
	trailingFenceRe = regexp.MustCompile("\n?```$")
)

// stripCodeFences removes one leading markdown code-fence marker (optionally
// tagged "json") and one trailing marker. It is the single repair heuristic
// applied to model output; nothing else is rewritten.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = leadingFenceRe.ReplaceAllString(trimmed, "")
	trimmed = trailingFenceRe.ReplaceAllString(trimmed, "")
	return trimmed
}

// CoerceJSON returns raw unchanged when it already parses as JSON. Otherwise
// it strips code fences once and retries. If the repaired text still does not
// parse, it returns a MalformedOutputError carrying the original parse error
// and the raw output.
func CoerceJSON(raw string) (string, error) {
	var v any
	firstErr := json.Unmarshal([]byte(raw), &v)
	if firstErr == nil {
		return raw, nil
	}

	repaired := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(repaired), &v); err == nil {
		return repaired, nil
	}

	return "", &MalformedOutputError{ParseErr: firstErr, Raw: raw}
}
