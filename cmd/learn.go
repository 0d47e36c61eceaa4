package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/feynman/internal/llm"
	"github.com/abhisek/feynman/internal/metrics"
	"github.com/abhisek/feynman/internal/notes"
	"github.com/abhisek/feynman/internal/pipeline"
	"github.com/abhisek/feynman/internal/session"
	"github.com/abhisek/feynman/internal/transcript"
)

var learnCmd = &cobra.Command{
	Use:   "learn [topic]",
	Short: "Start a learning session",
	Long: `Plan a learning path for a topic and work through it checkpoint by
checkpoint. The topic may also come from the frontmatter of --notes-file.`,
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().String("notes", "", "Context notes passed to the planner")
	learnCmd.Flags().String("notes-file", "", "Read context notes from a .md, .pdf or text file")
	learnCmd.Flags().String("transcript", "", "Write a markdown transcript to this path when the session ends")
	learnCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	learnCmd.Flags().Duration("timeout", 0, "Deadline for each provider call (0 = wait indefinitely)")
	learnCmd.MarkFlagsMutuallyExclusive("notes", "notes-file")
}

func runLearn(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	topic := strings.TrimSpace(strings.Join(args, " "))
	notesText, _ := cmd.Flags().GetString("notes")
	if path, _ := cmd.Flags().GetString("notes-file"); path != "" {
		doc, err := notes.Load(path)
		if err != nil {
			return err
		}
		notesText = doc.Text
		if topic == "" {
			topic = doc.Topic
		}
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	collector := metrics.NewCollector()
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go func() {
			if err := collector.Serve(ctx, addr, logger); err != nil {
				logger.Error("metrics server stopped", "addr", addr, "err", err)
			}
		}()
	}

	var adjust func(*llm.Config)
	if cmd.Flags().Changed("timeout") {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		adjust = func(c *llm.Config) { c.Timeout = timeout }
	}
	provider, err := newProvider(ctx, llm.Options{
		EventRepo: st.EventRepo(),
		Metrics:   collector,
	}, adjust)
	if err != nil {
		return err
	}

	sess := session.New(pipeline.New(provider, cfg.PipelineConfig(), logger), session.Options{
		Recorder: session.NewStoreRecorder(st.EventRepo()),
		Metrics:  collector,
		Logger:   logger,
	})

	h := newHost(sess, os.Stdin, os.Stdout, os.Stderr)
	runErr := h.run(ctx, topic, notesText)

	if path, _ := cmd.Flags().GetString("transcript"); path != "" && h.last.ID != "" {
		if err := transcript.WriteFile(path, h.last, time.Now()); err != nil {
			logger.Warn("failed to write transcript", "path", path, "err", err)
		} else {
			fmt.Fprintf(os.Stderr, "Transcript written to %s\n", path)
		}
	}
	return runErr
}
