package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/feynman/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List recorded sessions, or show one session's events",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		repo := s.EventRepo()

		if len(args) == 1 {
			events, err := repo.QuerySessionEvents(ctx, args[0], store.QueryOpts{Limit: limit})
			if err != nil {
				return fmt.Errorf("query session events: %w", err)
			}
			if len(events) == 0 {
				return fmt.Errorf("session %s not found", args[0])
			}
			printSessionEvents(events)
			return nil
		}

		sessions, err := repo.ListSessions(ctx, limit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded yet.")
			return nil
		}

		fmt.Printf("%-36s  %-24s  %-16s  %-16s  %6s  %s\n",
			"Session", "Topic", "Started", "Last Seen", "Events", "State")
		fmt.Println(strings.Repeat("─", 116))
		for _, ss := range sessions {
			fmt.Printf("%-36s  %-24s  %-16s  %-16s  %6d  %s\n",
				ss.SessionID,
				truncate(ss.Topic, 24),
				ss.StartedAt.Local().Format("2006-01-02 15:04"),
				ss.LastSeen.Local().Format("2006-01-02 15:04"),
				ss.Events,
				ss.LastState,
			)
		}
		return nil
	},
}

func printSessionEvents(events []store.SessionEvent) {
	fmt.Printf("Session: %s\nTopic:   %s\n\n", events[0].SessionID, events[0].Topic)
	fmt.Printf("%-6s  %-19s  %-12s  %-33s  %-4s  %-5s  %s\n",
		"Seq", "Timestamp", "Action", "Transition", "CP", "Score", "Detail")
	fmt.Println(strings.Repeat("─", 110))
	for _, e := range events {
		cp, score := "-", "-"
		if e.Checkpoint >= 0 {
			cp = fmt.Sprintf("%d", e.Checkpoint+1)
		}
		if e.Score >= 0 {
			score = fmt.Sprintf("%d", e.Score)
		}
		fmt.Printf("%-6d  %-19s  %-12s  %-33s  %-4s  %-5s  %s\n",
			e.Sequence,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Action,
			e.FromState+" → "+e.ToState,
			cp,
			score,
			e.Detail,
		)
	}
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sessions or events to show")
}
