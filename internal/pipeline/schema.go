package pipeline

import "github.com/abhisek/feynman/internal/llm"

// Structured outputs are requested as an object envelope because the
// providers' native structured-output modes require an object at the root.
// A bare array reply is wrapped under Envelope before validation.

// PathSchema defines the JSON schema for checkpoint planning.
var PathSchema = &llm.Schema{
	Name:        "learning-path",
	Description: "An ordered sequence of learning checkpoints for a topic",
	Envelope:    "checkpoints",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"checkpoints": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{
							"type":        "string",
							"description": "Short checkpoint title (2-6 words)",
						},
						"objective": map[string]any{
							"type":        "string",
							"description": "What the learner should be able to do after this checkpoint (one sentence)",
						},
					},
					"required":             []any{"title", "objective"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"checkpoints"},
		"additionalProperties": false,
	},
}

// QuizSchema defines the JSON schema for quiz generation.
var QuizSchema = &llm.Schema{
	Name:        "checkpoint-quiz",
	Description: "Multiple-choice questions verifying understanding of a lesson",
	Envelope:    "questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question text",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Answer options (at least 2)",
						},
						"correctOptionIndex": map[string]any{
							"type":        "integer",
							"description": "Zero-based index of the correct option",
						},
					},
					"required":             []any{"question", "options", "correctOptionIndex"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
