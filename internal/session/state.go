package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a trigger is not allowed in the
	// current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrGenerationInFlight is returned for triggers issued while content
	// is still being generated.
	ErrGenerationInFlight = errors.New("generation in flight")

	// ErrEmptyTopic is returned by Start for a blank topic.
	ErrEmptyTopic = errors.New("topic is empty")

	// ErrNoContent is returned when verification is requested before a
	// lesson exists.
	ErrNoContent = errors.New("no lesson content")

	// ErrNotPassed is returned by Proceed after a failed quiz.
	ErrNotPassed = errors.New("quiz not passed")

	// ErrAlreadyPassed is returned by Simplify after a passed quiz.
	ErrAlreadyPassed = errors.New("quiz already passed")

	// ErrSessionComplete is returned for any trigger once the session is
	// complete.
	ErrSessionComplete = errors.New("session complete")
)

// State is a session state.
type State int

const (
	StateIdle State = iota
	StatePlanning
	StateLearning
	StateQuizGeneration
	StateQuiz
	StateResult
	StateFeynman
	StateComplete
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateLearning:
		return "learning"
	case StateQuizGeneration:
		return "quiz_generation"
	case StateQuiz:
		return "quiz"
	case StateResult:
		return "result"
	case StateFeynman:
		return "feynman"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateComplete
}

// Trigger is an event that moves the session between states. Some are
// issued by the learner, the rest by generation completing.
type Trigger int

const (
	TriggerStart Trigger = iota
	TriggerPlanned
	TriggerPlanFailed
	TriggerLessonFailed
	TriggerVerify
	TriggerQuizReady
	TriggerQuizFailed
	TriggerSimplifiedQuizFailed
	TriggerSubmit
	TriggerAdvance
	TriggerComplete
	TriggerSimplify
	TriggerEnd
)

func (t Trigger) String() string {
	switch t {
	case TriggerStart:
		return "start"
	case TriggerPlanned:
		return "planned"
	case TriggerPlanFailed:
		return "plan_failed"
	case TriggerLessonFailed:
		return "lesson_failed"
	case TriggerVerify:
		return "verify"
	case TriggerQuizReady:
		return "quiz_ready"
	case TriggerQuizFailed, TriggerSimplifiedQuizFailed:
		return "quiz_failed"
	case TriggerSubmit:
		return "submit"
	case TriggerAdvance:
		return "advance"
	case TriggerComplete:
		return "complete"
	case TriggerSimplify:
		return "simplify"
	case TriggerEnd:
		return "end"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// validTransitions defines every edge of the session state machine.
var validTransitions = map[State]map[Trigger]State{
	StateIdle: {
		TriggerStart: StatePlanning,
	},
	StatePlanning: {
		TriggerPlanned:    StateLearning,
		TriggerPlanFailed: StateIdle,
		TriggerEnd:        StateIdle,
	},
	StateLearning: {
		TriggerVerify:       StateQuizGeneration,
		TriggerLessonFailed: StateIdle,
		TriggerEnd:          StateIdle,
	},
	StateFeynman: {
		TriggerVerify:       StateQuizGeneration,
		TriggerLessonFailed: StateIdle,
		TriggerEnd:          StateIdle,
	},
	StateQuizGeneration: {
		TriggerQuizReady:            StateQuiz,
		TriggerQuizFailed:           StateLearning,
		TriggerSimplifiedQuizFailed: StateFeynman,
		TriggerEnd:                  StateIdle,
	},
	StateQuiz: {
		TriggerSubmit: StateResult,
		TriggerEnd:    StateIdle,
	},
	StateResult: {
		TriggerAdvance:  StateLearning,
		TriggerComplete: StateComplete,
		TriggerSimplify: StateFeynman,
		TriggerEnd:      StateIdle,
	},
	StateComplete: {},
}

// next returns the state reached from s by t.
func next(s State, t Trigger) (State, error) {
	if s.IsTerminal() {
		return s, ErrSessionComplete
	}
	to, ok := validTransitions[s][t]
	if !ok {
		return s, fmt.Errorf("%w: %s from state %s", ErrInvalidTransition, t, s)
	}
	return to, nil
}
