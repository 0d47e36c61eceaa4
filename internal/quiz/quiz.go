// Package quiz models verification quizzes and scores submissions.
package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// PassThreshold is the minimum score that counts as a pass.
const PassThreshold = 70

// ErrIncompleteSubmission is returned when the number of answers does not
// match the number of questions.
var ErrIncompleteSubmission = errors.New("incomplete submission")

// Question is one multiple-choice question. Immutable once generated.
type Question struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// Validate checks the question's shape: non-empty text, at least two
// options and a correct index inside the options. Option text is not
// inspected.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("question text is empty")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("need at least 2 options, got %d", len(q.Options))
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
		return fmt.Errorf("correct option index %d out of range [0,%d)", q.CorrectOptionIndex, len(q.Options))
	}
	return nil
}

// Result is the outcome of one submission. It is replaced, never mutated,
// on every submission.
type Result struct {
	Score    int    `json:"score"`
	Passed   bool   `json:"passed"`
	Feedback string `json:"feedback"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
}

// Evaluate scores answers against questions. The score is
// round(100*correct/total) with halves rounded up. A nil feedback source
// leaves Feedback empty.
func Evaluate(questions []Question, answers []int, feedback FeedbackSource) (Result, error) {
	if len(questions) == 0 {
		return Result{}, errors.New("quiz has no questions")
	}
	if len(answers) != len(questions) {
		return Result{}, fmt.Errorf("%w: %d answers for %d questions", ErrIncompleteSubmission, len(answers), len(questions))
	}

	correct := 0
	for i, q := range questions {
		if answers[i] == q.CorrectOptionIndex {
			correct++
		}
	}

	score := Score(correct, len(questions))
	passed := score >= PassThreshold
	res := Result{
		Score:   score,
		Passed:  passed,
		Correct: correct,
		Total:   len(questions),
	}
	if feedback != nil {
		res.Feedback = feedback.Feedback(passed)
	}
	return res, nil
}

// Score returns round(100*correct/total) using integer arithmetic. total
// must be positive.
func Score(correct, total int) int {
	return (200*correct + total) / (2 * total)
}
