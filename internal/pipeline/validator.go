package pipeline

import (
	"fmt"
	"strings"

	"github.com/abhisek/feynman/internal/checkpoint"
	"github.com/abhisek/feynman/internal/quiz"
)

// PlanValidator checks one planned checkpoint item.
// Implementations should be stateless and safe for concurrent use.
type PlanValidator interface {
	Name() string
	Validate(item checkpoint.Item, index int) *ValidationError
}

// QuestionValidator checks one generated quiz question.
// Implementations should be stateless and safe for concurrent use.
type QuestionValidator interface {
	Name() string
	Validate(q quiz.Question, index int) *ValidationError
}

// ValidationError describes why a generated item was rejected.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Index     int    // Position of the offending item in the batch
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: item %d: %s", e.Validator, e.Index, e.Message)
}

// RequiredFieldsValidator rejects plan items with a blank title or
// objective.
type RequiredFieldsValidator struct{}

func (v *RequiredFieldsValidator) Name() string { return "required-fields" }

func (v *RequiredFieldsValidator) Validate(item checkpoint.Item, index int) *ValidationError {
	if strings.TrimSpace(item.Title) == "" {
		return &ValidationError{Validator: v.Name(), Index: index, Message: "title is empty"}
	}
	if strings.TrimSpace(item.Objective) == "" {
		return &ValidationError{Validator: v.Name(), Index: index, Message: "objective is empty"}
	}
	return nil
}

// StructuralValidator applies the question shape rules: text present, at
// least two options, correct index inside the options.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q quiz.Question, index int) *ValidationError {
	if err := q.Validate(); err != nil {
		return &ValidationError{Validator: v.Name(), Index: index, Message: err.Error()}
	}
	return nil
}

// DistinctOptionsValidator rejects questions that repeat an option, which
// would make the correct index ambiguous. It is not in the default chain;
// Config.StrictOptions adds it.
type DistinctOptionsValidator struct{}

func (v *DistinctOptionsValidator) Name() string { return "distinct-options" }

func (v *DistinctOptionsValidator) Validate(q quiz.Question, index int) *ValidationError {
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		key := strings.ToLower(strings.TrimSpace(o))
		if seen[key] {
			return &ValidationError{Validator: v.Name(), Index: index, Message: fmt.Sprintf("option %q repeated", o)}
		}
		seen[key] = true
	}
	return nil
}

func validatePlan(items []checkpoint.Item, validators []PlanValidator) *ValidationError {
	for i, it := range items {
		for _, v := range validators {
			if verr := v.Validate(it, i); verr != nil {
				return verr
			}
		}
	}
	return nil
}

func validateQuestions(qs []quiz.Question, validators []QuestionValidator) *ValidationError {
	for i, q := range qs {
		for _, v := range validators {
			if verr := v.Validate(q, i); verr != nil {
				return verr
			}
		}
	}
	return nil
}
