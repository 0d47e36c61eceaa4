package session

import "github.com/abhisek/feynman/internal/quiz"

// Action is what the adaptation policy decides after a quiz.
type Action string

const (
	ActionAdvance  Action = "advance"
	ActionComplete Action = "complete"
	ActionSimplify Action = "simplify"
)

// Decision is the adaptation policy's verdict for the active checkpoint.
type Decision struct {
	Action Action
	// Next is the checkpoint index to load. It equals the active index
	// for ActionSimplify and is unused for ActionComplete.
	Next int
}

// Adapt decides how a session moves on from a quiz result. A pass advances
// to the next checkpoint, or completes the path after the last one. A fail
// always re-teaches the same checkpoint in simplified form; there is no
// retry limit.
func Adapt(result quiz.Result, activeIndex, total int) Decision {
	if !result.Passed {
		return Decision{Action: ActionSimplify, Next: activeIndex}
	}
	if activeIndex+1 >= total {
		return Decision{Action: ActionComplete}
	}
	return Decision{Action: ActionAdvance, Next: activeIndex + 1}
}
