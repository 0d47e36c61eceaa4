package quiz

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuiz() []Question {
	return []Question{
		{Question: "What is work?", Options: []string{"Force times distance", "Mass times speed", "Heat"}, CorrectOptionIndex: 0},
		{Question: "SI unit of energy?", Options: []string{"Newton", "Joule"}, CorrectOptionIndex: 1},
		{Question: "Power is energy per...?", Options: []string{"metre", "kilogram", "second"}, CorrectOptionIndex: 2},
	}
}

func TestEvaluate_AllCorrect(t *testing.T) {
	res, err := Evaluate(sampleQuiz(), []int{0, 1, 2}, StaticFeedback{Pass: "yes", Fail: "no"})
	require.NoError(t, err)
	assert.Equal(t, Result{Score: 100, Passed: true, Feedback: "yes", Correct: 3, Total: 3}, res)
}

func TestEvaluate_OneWrong(t *testing.T) {
	res, err := Evaluate(sampleQuiz(), []int{1, 1, 2}, StaticFeedback{Pass: "yes", Fail: "no"})
	require.NoError(t, err)
	assert.Equal(t, 67, res.Score)
	assert.False(t, res.Passed)
	assert.Equal(t, "no", res.Feedback)
}

func TestEvaluate_OutOfRangeAnswerIsWrong(t *testing.T) {
	res, err := Evaluate(sampleQuiz(), []int{-1, 9, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 33, res.Score)
	assert.Empty(t, res.Feedback)
}

func TestEvaluate_IncompleteSubmission(t *testing.T) {
	_, err := Evaluate(sampleQuiz(), nil, nil)
	assert.ErrorIs(t, err, ErrIncompleteSubmission)

	_, err = Evaluate(sampleQuiz(), []int{0, 1, 2, 0}, nil)
	assert.ErrorIs(t, err, ErrIncompleteSubmission)
}

func TestEvaluate_EmptyQuiz(t *testing.T) {
	_, err := Evaluate(nil, nil, nil)
	assert.Error(t, err)
}

func TestScore_MatchesRoundedPercentage(t *testing.T) {
	for total := 1; total <= 50; total++ {
		for correct := 0; correct <= total; correct++ {
			want := int(math.Floor(100*float64(correct)/float64(total) + 0.5))
			got := Score(correct, total)
			if got != want {
				t.Fatalf("Score(%d, %d) = %d, want %d", correct, total, got, want)
			}
			if got < 0 || got > 100 {
				t.Fatalf("Score(%d, %d) = %d out of range", correct, total, got)
			}
		}
	}
}

func TestEvaluate_PassBoundary(t *testing.T) {
	tests := []struct {
		correct, total int
		score          int
		passed         bool
	}{
		{7, 10, 70, true},
		{9, 13, 69, false},
		{2, 3, 67, false},
		{1, 2, 50, false},
		{3, 4, 75, true},
		{1, 8, 13, false}, // 12.5 rounds up
	}
	for _, tt := range tests {
		qs := make([]Question, tt.total)
		answers := make([]int, tt.total)
		for i := range qs {
			qs[i] = Question{Question: "q", Options: []string{"a", "b"}, CorrectOptionIndex: 0}
			if i >= tt.correct {
				answers[i] = 1
			}
		}
		res, err := Evaluate(qs, answers, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.score, res.Score, "%d/%d", tt.correct, tt.total)
		assert.Equal(t, tt.passed, res.Passed, "%d/%d", tt.correct, tt.total)
		assert.Equal(t, res.Score >= PassThreshold, res.Passed)
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{"valid", Question{Question: "q", Options: []string{"a", "b"}, CorrectOptionIndex: 1}, false},
		{"blank text", Question{Question: "  ", Options: []string{"a", "b"}}, true},
		{"one option", Question{Question: "q", Options: []string{"a"}}, true},
		{"blank option", Question{Question: "q", Options: []string{"a", ""}}, false},
		{"index too high", Question{Question: "q", Options: []string{"a", "b"}, CorrectOptionIndex: 2}, true},
		{"negative index", Question{Question: "q", Options: []string{"a", "b"}, CorrectOptionIndex: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRandomFeedback_PicksFromMatchingPool(t *testing.T) {
	var f RandomFeedback
	for range 50 {
		assert.True(t, slices.Contains(passMessages, f.Feedback(true)))
		assert.True(t, slices.Contains(failMessages, f.Feedback(false)))
	}
}
