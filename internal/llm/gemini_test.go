package llm

import (
	"testing"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"}, // Pass-through
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":     "array",
							"minItems": float64(2),
							"items":    map[string]any{"type": "string"},
						},
						"correct_option_index": map[string]any{"type": "integer"},
						"difficulty":           map[string]any{"type": "string", "enum": []any{"easy", "medium", "hard"}},
					},
					"required": []any{"question", "options", "correct_option_index"},
				},
			},
		},
		"required": []any{"questions"},
	}

	schema := buildGeminiSchema(def)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	questions := schema.Properties["questions"]
	if questions == nil || questions.Type != "ARRAY" {
		t.Fatalf("expected ARRAY for questions, got %+v", questions)
	}
	if questions.MinItems == nil || *questions.MinItems != 1 {
		t.Fatalf("expected minItems 1, got %v", questions.MinItems)
	}

	item := questions.Items
	if len(item.Properties) != 4 {
		t.Fatalf("expected 4 item properties, got %d", len(item.Properties))
	}
	if item.Properties["correct_option_index"].Type != "INTEGER" {
		t.Fatalf("expected INTEGER for correct_option_index, got %s", item.Properties["correct_option_index"].Type)
	}
	if opts := item.Properties["options"]; opts.MinItems == nil || *opts.MinItems != 2 {
		t.Fatalf("expected options minItems 2 from float, got %v", opts.MinItems)
	}
	if len(item.Properties["difficulty"].Enum) != 3 {
		t.Fatalf("expected 3 enum values, got %d", len(item.Properties["difficulty"].Enum))
	}
	if len(item.Required) != 3 {
		t.Fatalf("expected 3 required fields, got %d", len(item.Required))
	}
}
