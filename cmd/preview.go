package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/feynman/internal/checkpoint"
	"github.com/abhisek/feynman/internal/llm"
	"github.com/abhisek/feynman/internal/pipeline"
)

var previewCmd = &cobra.Command{
	Use:   "preview <topic>",
	Short: "Preview the generated path, a lesson and its quiz (no database)",
	Long: `Plan a path for a topic and print one checkpoint's lesson and quiz.

This is a stateless developer tool: no session, no event log. Useful for
judging prompt and model quality.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().Int("checkpoint", 1, "Checkpoint number to generate the lesson for")
	previewCmd.Flags().Bool("simplified", false, "Generate the simplified lesson")
	previewCmd.Flags().Bool("quiz", true, "Also generate the quiz for the lesson")
	previewCmd.Flags().String("notes", "", "Context notes passed to the planner")
}

func runPreview(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	cpNum, _ := cmd.Flags().GetInt("checkpoint")
	simplified, _ := cmd.Flags().GetBool("simplified")
	withQuiz, _ := cmd.Flags().GetBool("quiz")
	notesText, _ := cmd.Flags().GetString("notes")

	// No EventRepo, so requests are not logged.
	ctx := cmd.Context()
	provider, err := newProvider(ctx, llm.Options{}, nil)
	if err != nil {
		return err
	}
	gen := pipeline.New(provider, cfg.PipelineConfig(), logger)

	fmt.Printf("Topic: %s\nPlanning...\n\n", topic)
	items, err := gen.PlanPath(ctx, topic, notesText)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	var path checkpoint.Path
	if err := path.Plan(items); err != nil {
		return err
	}
	for _, cp := range path.Checkpoints() {
		fmt.Printf("  %d. %s\n     %s\n", cp.ID+1, cp.Title, cp.Objective)
	}

	cp, err := path.At(cpNum - 1)
	if err != nil {
		return fmt.Errorf("--checkpoint %d: %w", cpNum, err)
	}
	mode := pipeline.ModeStandard
	if simplified {
		mode = pipeline.ModeSimplified
	}

	fmt.Printf("\n── Lesson %d (%s) ──\n", cpNum, mode)
	lesson, err := gen.GenerateLesson(ctx, topic, cp, mode)
	if err != nil {
		return fmt.Errorf("lesson: %w", err)
	}
	fmt.Println(lesson)

	if !withQuiz {
		return nil
	}
	fmt.Printf("\n── Quiz ──\n")
	questions, err := gen.GenerateQuiz(ctx, lesson)
	if err != nil {
		return fmt.Errorf("quiz: %w", err)
	}
	for i, q := range questions {
		fmt.Printf("Q%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			mark := " "
			if j == q.CorrectOptionIndex {
				mark = "*"
			}
			fmt.Printf("  %s %d) %s\n", mark, j+1, opt)
		}
	}
	return nil
}
