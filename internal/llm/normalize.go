package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON strips markdown code fences and returns the first complete
// JSON object or array in s. It returns s trimmed when no bracketed value
// is found, leaving the decoder to report the error.
func ExtractJSON(s string) string {
	if m := codeFenceRegex.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	openCh, closeCh := '[', ']'
	if s[start] == '{' {
		openCh, closeCh = '{', '}'
	}
	if end := findMatchingBracket(s, start, openCh, closeCh); end != -1 {
		return s[start : end+1]
	}
	return s
}

// findMatchingBracket returns the index of the bracket closing the one at
// startPos, skipping brackets inside JSON strings. Returns -1 if there is
// none.
func findMatchingBracket(s string, startPos int, openChar, closeChar rune) int {
	depth := 0
	inString := false
	escaped := false

	for i := startPos; i < len(s); i++ {
		ch := rune(s[i])
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// normalizeStructured reduces a structured reply to the JSON document the
// schema describes. Fences and surrounding prose are dropped, and a bare
// array is wrapped under schema.Envelope when the schema names one.
func normalizeStructured(schema *Schema, raw json.RawMessage) json.RawMessage {
	text := ExtractJSON(string(raw))
	if schema.Envelope != "" && strings.HasPrefix(text, "[") && json.Valid([]byte(text)) {
		wrapped, err := json.Marshal(map[string]json.RawMessage{schema.Envelope: json.RawMessage(text)})
		if err == nil {
			return wrapped
		}
	}
	return json.RawMessage(text)
}
