package parse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Failure is the typed result of a parse that could not be completed. The
// orchestrator treats it as a fallback transition, never as a request error.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("parse failure: %s: %v", f.Reason, f.Err)
	}
	return "parse failure: " + f.Reason
}

func (f *Failure) Unwrap() error { return f.Err }

// decodeModelJSON decodes a language model's free-form reply into v. Two
// stages: strip code-fence wrappers the model may have added, then locate
// the first balanced {...} span and parse that substring.
func decodeModelJSON(raw string, v any) error {
	s := stripCodeFences(raw)

	obj, ok := firstJSONObject(s)
	if !ok {
		return &Failure{Reason: "no JSON object found in model reply"}
	}

	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return &Failure{Reason: "malformed JSON in model reply", Err: err}
	}
	return nil
}

// stripCodeFences removes ``` or ```json wrappers. The model is told not to
// use them, but it does anyway often enough.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// firstJSONObject returns the first balanced top-level {...} span, tracking
// string literals and escapes so braces inside values do not miscount.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
