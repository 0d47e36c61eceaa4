package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/feynman/internal/llm"
)

// decodeList decodes a structured response into a slice of T. Both a bare
// array and an object envelope holding the array under key are accepted.
// Blank content decodes to an empty slice.
func decodeList[T any](raw []byte, key string) ([]T, error) {
	text := llm.ExtractJSON(string(raw))
	if text == "" {
		return nil, nil
	}

	if strings.HasPrefix(text, "[") {
		var items []T
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	inner, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("missing %q field", key)
	}
	if bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return items, nil
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
