package session

import (
	"slices"

	"github.com/abhisek/feynman/internal/checkpoint"
	"github.com/abhisek/feynman/internal/pipeline"
	"github.com/abhisek/feynman/internal/quiz"
)

// Snapshot is a read-only copy of a session for rendering. Nothing in it
// aliases session state.
type Snapshot struct {
	ID    string `json:"id"`
	State State  `json:"state"`
	Topic string `json:"topic"`

	Checkpoints   []checkpoint.Checkpoint `json:"checkpoints"`
	ActiveIndex   int                     `json:"active_index"`
	ActiveContent string                  `json:"active_content"`
	ActiveQuiz    []quiz.Question         `json:"active_quiz"`
	LastResult    *quiz.Result            `json:"last_result,omitempty"`

	// Pending is true while a generation is in flight.
	Pending bool `json:"pending"`

	// Mode is the style of the active lesson.
	Mode pipeline.Mode `json:"mode"`

	// Attempts counts simplified re-teachings of the active checkpoint.
	Attempts int `json:"attempts"`

	// Err is the last error surfaced to the learner, cleared by the next
	// successful trigger.
	Err error `json:"-"`

	// Version increases with every change.
	Version uint64 `json:"version"`
}

// ActiveCheckpoint returns the checkpoint being worked on, if any.
func (s Snapshot) ActiveCheckpoint() (checkpoint.Checkpoint, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Checkpoints) {
		return checkpoint.Checkpoint{}, false
	}
	return s.Checkpoints[s.ActiveIndex], true
}

// Completed returns the number of completed checkpoints.
func (s Snapshot) Completed() int {
	n := 0
	for _, c := range s.Checkpoints {
		if c.Status == checkpoint.StatusCompleted {
			n++
		}
	}
	return n
}

func cloneQuestions(qs []quiz.Question) []quiz.Question {
	if qs == nil {
		return nil
	}
	out := make([]quiz.Question, len(qs))
	for i, q := range qs {
		q.Options = slices.Clone(q.Options)
		out[i] = q
	}
	return out
}
