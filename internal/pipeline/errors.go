package pipeline

import (
	"errors"
	"fmt"

	"github.com/abhisek/feynman/internal/checkpoint"
	"github.com/abhisek/feynman/internal/llm"
)

var (
	// ErrMalformedResponse marks structured output that failed parsing or
	// validation.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrProviderUnavailable marks transport or provider level failures.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInvalidPlan marks a plan with no checkpoints.
	ErrInvalidPlan = checkpoint.ErrInvalidPlan
)

// Op names a pipeline operation.
type Op string

const (
	OpPlan   Op = "plan"
	OpLesson Op = "lesson"
	OpQuiz   Op = "quiz"
)

// GenerationError reports a failed pipeline operation. Kind is one of
// ErrInvalidPlan, ErrMalformedResponse or ErrProviderUnavailable, so
// callers can match it with errors.Is.
type GenerationError struct {
	Op   Op
	Kind error
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// providerError classifies a provider failure. Truncated or
// schema-violating output is malformed; everything else is treated as the
// provider being unavailable.
func providerError(op Op, err error) *GenerationError {
	kind := ErrProviderUnavailable
	if llm.IsMalformed(err) {
		kind = ErrMalformedResponse
	}
	return &GenerationError{Op: op, Kind: kind, Err: err}
}

func malformed(op Op, err error) *GenerationError {
	return &GenerationError{Op: op, Kind: ErrMalformedResponse, Err: err}
}
