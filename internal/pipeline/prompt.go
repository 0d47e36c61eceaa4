package pipeline

import (
	"fmt"
	"strings"

	"github.com/abhisek/feynman/internal/checkpoint"
)

const planSystemPrompt = `You are an expert curriculum designer. You break a topic into a short sequence of checkpoints that a motivated adult can work through in one sitting, each building on the one before.`

func buildPlanUserMessage(topic, notes string, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if notes != "" {
		fmt.Fprintf(&b, "\nLearner's notes (excerpt):\n%s\n", notes)
	}

	fmt.Fprintf(&b, `
Instructions:
1. Plan between %d and %d sequential checkpoints that take the learner from the basics of the topic to a solid working understanding.
2. Order matters: each checkpoint may rely only on the ones before it.
3. Give each checkpoint a short title (2-6 words) and a one-sentence objective describing what the learner will be able to do.
4. If notes are provided, use them to decide what to emphasise. Do not repeat them verbatim.`,
		cfg.MinCheckpoints, cfg.MaxCheckpoints)

	return b.String()
}

const lessonSystemPrompt = `You are a knowledgeable, patient tutor. You write self-contained lessons in markdown for one checkpoint of a larger learning path.`

const (
	standardInstruction = `Write a structured, academic lesson: start with a precise definition, develop the key ideas in clearly headed sections, include one worked example, and finish with a short summary of what to remember. Use correct terminology and define each term when it first appears.`

	simplifiedInstruction = `The learner did not pass the quiz on this checkpoint. Explain it again as if to a curious 12-year-old, in the spirit of Richard Feynman: no jargon, short sentences, and one or two everyday analogies that carry the core idea. Build intuition first and only then name the concept. End with a one-line recap.`
)

func buildLessonUserMessage(topic string, cp checkpoint.Checkpoint, mode Mode) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Checkpoint: %s\n", cp.Title)
	fmt.Fprintf(&b, "Objective: %s\n", cp.Objective)

	b.WriteString("\nInstructions:\n")
	if mode == ModeSimplified {
		b.WriteString(simplifiedInstruction)
	} else {
		b.WriteString(standardInstruction)
	}
	b.WriteString("\nStay on this checkpoint's objective. Do not include a quiz.")

	return b.String()
}

const quizSystemPrompt = `You write multiple-choice questions that check whether a learner understood a lesson. Questions test understanding, not recall of exact wording.`

func buildQuizUserMessage(excerpt string, cfg Config) string {
	var b strings.Builder

	b.WriteString("Lesson:\n")
	b.WriteString(excerpt)
	b.WriteString("\n")

	fmt.Fprintf(&b, `
Instructions:
1. Write exactly %d multiple-choice questions answerable from the lesson above.
2. Each question has 3 or 4 distinct options, exactly one of which is correct.
3. correctOptionIndex is the zero-based position of the correct option.
4. Vary the position of the correct option across questions.`,
		cfg.QuestionCount)

	return b.String()
}
