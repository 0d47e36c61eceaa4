// Package pipeline turns topics, checkpoints and lessons into content
// provider requests and validates what comes back.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/feynman/internal/checkpoint"
	"github.com/abhisek/feynman/internal/llm"
	"github.com/abhisek/feynman/internal/quiz"
)

// Mode selects the lesson style.
type Mode string

const (
	ModeStandard   Mode = "standard"
	ModeSimplified Mode = "simplified"
)

// Pipeline generates learning paths, lessons and quizzes. Each operation is
// a single provider round trip; it is safe for concurrent use.
type Pipeline struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
}

// New creates a Pipeline. A nil logger discards output.
func New(provider llm.Provider, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{provider: provider, cfg: cfg, logger: logger}
}

// Config returns the pipeline's settings.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// planItem and quizItem mirror the wire shapes. Pointer fields tell a
// missing field apart from a zero value.
type planItem struct {
	Title     *string `json:"title"`
	Objective *string `json:"objective"`
}

type quizItem struct {
	Question           *string  `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex *int     `json:"correctOptionIndex"`
}

// PlanPath asks the provider for a sequence of checkpoints for topic.
// Notes are cut to Config.NotesLimit runes before they reach the prompt.
// An empty plan fails with ErrInvalidPlan; an unparsable or invalid one
// with ErrMalformedResponse.
func (p *Pipeline) PlanPath(ctx context.Context, topic, notes string) ([]checkpoint.Item, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposePathPlan)

	notes = truncateRunes(strings.TrimSpace(notes), p.cfg.NotesLimit)
	req := llm.Request{
		System: planSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildPlanUserMessage(topic, notes, p.cfg)},
		},
		Schema:      PathSchema,
		MaxTokens:   p.cfg.PlanMaxTokens,
		Temperature: p.cfg.Temperature,
	}

	resp, err := p.provider.Generate(ctx, req)
	if err != nil {
		return nil, providerError(OpPlan, err)
	}

	raw, err := decodeList[planItem](resp.Content, "checkpoints")
	if err != nil {
		return nil, malformed(OpPlan, err)
	}
	if len(raw) == 0 {
		return nil, &GenerationError{Op: OpPlan, Kind: ErrInvalidPlan}
	}

	items := make([]checkpoint.Item, len(raw))
	for i, r := range raw {
		if r.Title == nil || r.Objective == nil {
			return nil, malformed(OpPlan, fmt.Errorf("item %d: missing title or objective", i))
		}
		items[i] = checkpoint.Item{
			Title:     strings.TrimSpace(*r.Title),
			Objective: strings.TrimSpace(*r.Objective),
		}
	}
	if verr := validatePlan(items, p.cfg.PlanValidators); verr != nil {
		return nil, malformed(OpPlan, verr)
	}

	if len(items) < p.cfg.MinCheckpoints || len(items) > p.cfg.MaxCheckpoints {
		p.logger.Warn("plan size outside requested range",
			"topic", topic, "checkpoints", len(items),
			"min", p.cfg.MinCheckpoints, "max", p.cfg.MaxCheckpoints)
	}
	p.logger.Debug("planned path", "topic", topic, "checkpoints", len(items), "model", resp.Model)

	return items, nil
}

// GenerateLesson writes the lesson for one checkpoint. The text is returned
// as the provider produced it; an empty reply becomes
// Config.EmptyLessonPlaceholder.
func (p *Pipeline) GenerateLesson(ctx context.Context, topic string, cp checkpoint.Checkpoint, mode Mode) (string, error) {
	purpose := llm.PurposeLesson
	if mode == ModeSimplified {
		purpose = llm.PurposeLessonSimplified
	}
	ctx = llm.WithPurpose(ctx, purpose)

	req := llm.Request{
		System: lessonSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildLessonUserMessage(topic, cp, mode)},
		},
		MaxTokens:   p.cfg.LessonMaxTokens,
		Temperature: p.cfg.Temperature,
	}

	resp, err := p.provider.Generate(ctx, req)
	if err != nil {
		return "", providerError(OpLesson, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		p.logger.Warn("provider returned an empty lesson", "topic", topic, "checkpoint", cp.ID, "mode", mode)
		return p.cfg.EmptyLessonPlaceholder, nil
	}
	return text, nil
}

// GenerateQuiz writes verification questions from the first
// Config.ExcerptLimit runes of a lesson. Every question must pass the
// validator chain or the whole batch fails with ErrMalformedResponse.
func (p *Pipeline) GenerateQuiz(ctx context.Context, lesson string) ([]quiz.Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuiz)

	req := llm.Request{
		System: quizSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildQuizUserMessage(truncateRunes(lesson, p.cfg.ExcerptLimit), p.cfg)},
		},
		Schema:      QuizSchema,
		MaxTokens:   p.cfg.QuizMaxTokens,
		Temperature: p.cfg.Temperature,
	}

	resp, err := p.provider.Generate(ctx, req)
	if err != nil {
		return nil, providerError(OpQuiz, err)
	}

	raw, err := decodeList[quizItem](resp.Content, "questions")
	if err != nil {
		return nil, malformed(OpQuiz, err)
	}
	if len(raw) == 0 {
		return nil, malformed(OpQuiz, errors.New("no questions"))
	}

	qs := make([]quiz.Question, len(raw))
	for i, r := range raw {
		if r.Question == nil || r.CorrectOptionIndex == nil {
			return nil, malformed(OpQuiz, fmt.Errorf("item %d: missing question or correctOptionIndex", i))
		}
		qs[i] = quiz.Question{
			Question:           *r.Question,
			Options:            r.Options,
			CorrectOptionIndex: *r.CorrectOptionIndex,
		}
	}
	if verr := validateQuestions(qs, p.cfg.QuestionValidators); verr != nil {
		return nil, malformed(OpQuiz, verr)
	}

	if len(qs) != p.cfg.QuestionCount {
		p.logger.Warn("quiz size differs from requested", "questions", len(qs), "requested", p.cfg.QuestionCount)
	}
	return qs, nil
}
