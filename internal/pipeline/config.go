package pipeline

// Config holds content generation settings.
type Config struct {
	// NotesLimit bounds how many runes of the learner's notes reach the
	// planning prompt.
	NotesLimit int

	// ExcerptLimit bounds how many runes of lesson content reach the quiz
	// prompt.
	ExcerptLimit int

	// MinCheckpoints and MaxCheckpoints are the plan size requested from
	// the model. Plans outside the range are accepted but logged.
	MinCheckpoints int
	MaxCheckpoints int

	// QuestionCount is the number of quiz questions requested.
	QuestionCount int

	PlanMaxTokens   int
	LessonMaxTokens int
	QuizMaxTokens   int
	Temperature     float64

	// EmptyLessonPlaceholder replaces a lesson the provider returned
	// without any text.
	EmptyLessonPlaceholder string

	// PlanValidators and QuestionValidators run in order on every
	// generated item. The first failure rejects the batch.
	PlanValidators     []PlanValidator
	QuestionValidators []QuestionValidator
}

// StrictOptions returns c with DistinctOptionsValidator appended to the
// question chain.
func (c Config) StrictOptions() Config {
	c.QuestionValidators = append(append([]QuestionValidator(nil), c.QuestionValidators...), &DistinctOptionsValidator{})
	return c
}

// DefaultConfig returns the standard limits and validator chains.
func DefaultConfig() Config {
	return Config{
		NotesLimit:             500,
		ExcerptLimit:           2000,
		MinCheckpoints:         3,
		MaxCheckpoints:         5,
		QuestionCount:          3,
		PlanMaxTokens:          1024,
		LessonMaxTokens:        2048,
		QuizMaxTokens:          1024,
		Temperature:            0.7,
		EmptyLessonPlaceholder: "Content generation failed.",
		PlanValidators: []PlanValidator{
			&RequiredFieldsValidator{},
		},
		QuestionValidators: []QuestionValidator{
			&StructuralValidator{},
		},
	}
}
