package quiz

import "math/rand/v2"

// FeedbackSource picks the message shown with a result. It has no effect on
// scoring.
type FeedbackSource interface {
	Feedback(passed bool) string
}

var (
	passMessages = []string{
		"Nicely done. You've got this checkpoint down.",
		"Solid work. On to the next idea.",
		"That's mastery. Keep the momentum going.",
		"Great reasoning. You clearly understood it.",
	}
	failMessages = []string{
		"Not quite yet. Let's look at it from a different angle.",
		"Close. A simpler explanation should make it click.",
		"This one is tricky. Let's break it down further.",
		"No worries. Let's try explaining it another way.",
	}
)

// RandomFeedback picks uniformly from fixed pass and fail pools.
type RandomFeedback struct{}

func (RandomFeedback) Feedback(passed bool) string {
	pool := failMessages
	if passed {
		pool = passMessages
	}
	return pool[rand.IntN(len(pool))]
}

// StaticFeedback always returns the same message for each outcome.
type StaticFeedback struct {
	Pass string
	Fail string
}

func (s StaticFeedback) Feedback(passed bool) string {
	if passed {
		return s.Pass
	}
	return s.Fail
}
