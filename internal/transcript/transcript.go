// Package transcript exports a session snapshot as a markdown document.
package transcript

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/feynman/internal/checkpoint"
	"github.com/abhisek/feynman/internal/pipeline"
	"github.com/abhisek/feynman/internal/session"
)

const separator = "---\n"

// Meta is the YAML frontmatter of a transcript.
type Meta struct {
	SessionID  string    `yaml:"session_id"`
	Topic      string    `yaml:"topic"`
	State      string    `yaml:"state"`
	Completed  int       `yaml:"completed"`
	Total      int       `yaml:"total"`
	LastScore  *int      `yaml:"last_score,omitempty"`
	Mode       string    `yaml:"mode,omitempty"`
	ExportedAt time.Time `yaml:"exported_at"`
}

// Render produces the transcript for snap.
func Render(snap session.Snapshot, exportedAt time.Time) (string, error) {
	meta := Meta{
		SessionID:  snap.ID,
		Topic:      snap.Topic,
		State:      snap.State.String(),
		Completed:  snap.Completed(),
		Total:      len(snap.Checkpoints),
		Mode:       string(snap.Mode),
		ExportedAt: exportedAt.UTC(),
	}
	if snap.LastResult != nil {
		score := snap.LastResult.Score
		meta.LastScore = &score
	}

	raw, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(separator)
	buf.Write(raw)
	buf.WriteString(separator)
	buf.WriteString("\n")

	title := snap.Topic
	if title == "" {
		title = "Untitled session"
	}
	fmt.Fprintf(&buf, "# %s\n", title)

	if len(snap.Checkpoints) > 0 {
		buf.WriteString("\n## Checkpoints\n\n")
		for _, cp := range snap.Checkpoints {
			fmt.Fprintf(&buf, "- %s %d. %s", marker(cp.Status), cp.ID+1, cp.Title)
			if cp.Objective != "" {
				fmt.Fprintf(&buf, ": %s", cp.Objective)
			}
			buf.WriteString("\n")
		}
	}

	if content := strings.TrimSpace(snap.ActiveContent); content != "" {
		heading := "Lesson"
		if cp, ok := snap.ActiveCheckpoint(); ok {
			heading = fmt.Sprintf("Lesson %d: %s", cp.ID+1, cp.Title)
		}
		if snap.Mode == pipeline.ModeSimplified {
			heading += " (simplified)"
		}
		fmt.Fprintf(&buf, "\n## %s\n\n%s\n", heading, content)
	}

	if r := snap.LastResult; r != nil {
		verdict := "not passed"
		if r.Passed {
			verdict = "passed"
		}
		fmt.Fprintf(&buf, "\n## Last quiz\n\nScore: %d (%s)\n", r.Score, verdict)
		if r.Feedback != "" {
			fmt.Fprintf(&buf, "\n> %s\n", r.Feedback)
		}
	}

	return buf.String(), nil
}

// WriteFile renders snap and writes it to path.
func WriteFile(path string, snap session.Snapshot, exportedAt time.Time) error {
	doc, err := Render(snap, exportedAt)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

func marker(s checkpoint.Status) string {
	switch s {
	case checkpoint.StatusCompleted:
		return "[x]"
	case checkpoint.StatusCurrent:
		return "[>]"
	default:
		return "[ ]"
	}
}
