package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/feynman/internal/quiz"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StatePlanning, "planning"},
		{StateLearning, "learning"},
		{StateQuizGeneration, "quiz_generation"},
		{StateQuiz, "quiz"},
		{StateResult, "result"},
		{StateFeynman, "feynman"},
		{StateComplete, "complete"},
		{State(42), "unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestStateMarshalsByName(t *testing.T) {
	b, err := json.Marshal(map[string]State{"state": StateFeynman})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"state":"feynman"}` {
		t.Fatalf("unexpected JSON %s", b)
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from    State
		trigger Trigger
		want    State
	}{
		{StateIdle, TriggerStart, StatePlanning},
		{StatePlanning, TriggerPlanned, StateLearning},
		{StatePlanning, TriggerPlanFailed, StateIdle},
		{StateLearning, TriggerVerify, StateQuizGeneration},
		{StateLearning, TriggerLessonFailed, StateIdle},
		{StateFeynman, TriggerVerify, StateQuizGeneration},
		{StateFeynman, TriggerLessonFailed, StateIdle},
		{StateQuizGeneration, TriggerQuizReady, StateQuiz},
		{StateQuizGeneration, TriggerQuizFailed, StateLearning},
		{StateQuizGeneration, TriggerSimplifiedQuizFailed, StateFeynman},
		{StateQuiz, TriggerSubmit, StateResult},
		{StateResult, TriggerAdvance, StateLearning},
		{StateResult, TriggerComplete, StateComplete},
		{StateResult, TriggerSimplify, StateFeynman},
	}
	for _, tt := range tests {
		got, err := next(tt.from, tt.trigger)
		if err != nil {
			t.Errorf("%s --%s--> unexpected error: %v", tt.from, tt.trigger, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s --%s--> %s, want %s", tt.from, tt.trigger, got, tt.want)
		}
	}
}

func TestEndFromEveryNonTerminalState(t *testing.T) {
	for _, s := range []State{StatePlanning, StateLearning, StateQuizGeneration, StateQuiz, StateResult, StateFeynman} {
		got, err := next(s, TriggerEnd)
		if err != nil || got != StateIdle {
			t.Errorf("end from %s = %s, %v", s, got, err)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		from    State
		trigger Trigger
	}{
		{StateIdle, TriggerVerify},
		{StateIdle, TriggerSubmit},
		{StateLearning, TriggerSubmit},
		{StateLearning, TriggerStart},
		{StateQuiz, TriggerAdvance},
		{StateResult, TriggerVerify},
		{StatePlanning, TriggerStart},
	}
	for _, tt := range tests {
		if _, err := next(tt.from, tt.trigger); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s --%s--> expected ErrInvalidTransition, got %v", tt.from, tt.trigger, err)
		}
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	if !StateComplete.IsTerminal() {
		t.Fatal("complete should be terminal")
	}
	for trig := TriggerStart; trig <= TriggerEnd; trig++ {
		if _, err := next(StateComplete, trig); !errors.Is(err, ErrSessionComplete) {
			t.Errorf("trigger %s from complete: expected ErrSessionComplete, got %v", trig, err)
		}
	}
	for s := StateIdle; s < StateComplete; s++ {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestAdapt(t *testing.T) {
	pass := quiz.Result{Score: 100, Passed: true}
	fail := quiz.Result{Score: 33, Passed: false}

	tests := []struct {
		name   string
		result quiz.Result
		active int
		total  int
		want   Decision
	}{
		{"pass advances", pass, 0, 4, Decision{Action: ActionAdvance, Next: 1}},
		{"pass on last completes", pass, 3, 4, Decision{Action: ActionComplete}},
		{"pass on single completes", pass, 0, 1, Decision{Action: ActionComplete}},
		{"fail simplifies same checkpoint", fail, 2, 4, Decision{Action: ActionSimplify, Next: 2}},
		{"fail on last still simplifies", fail, 3, 4, Decision{Action: ActionSimplify, Next: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Adapt(tt.result, tt.active, tt.total); got != tt.want {
				t.Fatalf("Adapt() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
