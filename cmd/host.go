package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/abhisek/feynman/internal/checkpoint"
	"github.com/abhisek/feynman/internal/pipeline"
	"github.com/abhisek/feynman/internal/quiz"
	"github.com/abhisek/feynman/internal/session"
	"github.com/abhisek/feynman/internal/ui/theme"
)

var errQuit = errors.New("quit")

// host is the line-oriented view over a session. It renders each settled
// snapshot and maps typed commands onto session triggers.
type host struct {
	sess   *session.Session
	lines  <-chan string
	out    io.Writer
	status io.Writer // spinner output

	// last is the most recent snapshot of a started session, kept for the
	// transcript after the session is reset.
	last session.Snapshot
}

func newHost(sess *session.Session, in io.Reader, out, status io.Writer) *host {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &host{sess: sess, lines: lines, out: out, status: status}
}

func (h *host) run(ctx context.Context, topic, notes string) error {
	if topic == "" {
		line, err := h.ask(ctx, "Topic: ")
		if err != nil {
			return nil
		}
		topic = line
	}

	snap, err := h.sess.Start(ctx, topic, notes)
	if err != nil {
		return err
	}

	for {
		snap, err = h.await(ctx, snap)
		if err != nil {
			h.println(theme.Hint.Render("Interrupted."))
			return nil
		}
		if snap.ID != "" {
			h.last = snap
		}
		h.render(snap)

		switch snap.State {
		case session.StateComplete:
			return nil
		case session.StateIdle:
			if snap.Err != nil {
				return fmt.Errorf("session ended: %w", snap.Err)
			}
			return nil
		}

		line, err := h.ask(ctx, prompt(snap))
		if err != nil {
			// Input closed or interrupted.
			_, _ = h.sess.EndSession()
			return nil
		}

		next, err := h.handle(ctx, snap, line)
		if errors.Is(err, errQuit) {
			h.println(theme.Hint.Render("Session ended."))
			return nil
		}
		if err != nil && !errors.Is(next.Err, err) {
			h.println(theme.ErrorText.Render(err.Error()))
		}
		snap = next
	}
}

// handle applies one command typed in the state shown by snap.
func (h *host) handle(ctx context.Context, snap session.Snapshot, line string) (session.Snapshot, error) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	if cmd == "q" || cmd == "quit" {
		if _, err := h.sess.EndSession(); err != nil {
			return snap, err
		}
		return snap, errQuit
	}

	switch snap.State {
	case session.StateLearning, session.StateFeynman:
		if cmd == "v" || cmd == "verify" {
			return h.sess.RequestVerification(ctx)
		}
	case session.StateQuiz:
		answers, err := parseAnswers(cmd, len(snap.ActiveQuiz))
		if err != nil {
			return snap, err
		}
		return h.sess.Submit(answers)
	case session.StateResult:
		switch cmd {
		case "p", "proceed":
			return h.sess.Proceed(ctx)
		case "s", "simplify":
			return h.sess.Simplify(ctx)
		case "":
			if snap.LastResult != nil {
				d := session.Adapt(*snap.LastResult, snap.ActiveIndex, len(snap.Checkpoints))
				if d.Action == session.ActionSimplify {
					return h.sess.Simplify(ctx)
				}
				return h.sess.Proceed(ctx)
			}
		}
	}
	return snap, fmt.Errorf("unknown command %q", strings.TrimSpace(line))
}

// parseAnswers reads 1-based option numbers separated by spaces or commas.
func parseAnswers(s string, options int) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	answers := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid answer %q: use option numbers like 1 3 2", f)
		}
		answers = append(answers, n-1)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("enter one option number per question (%d questions)", options)
	}
	return answers, nil
}

// await blocks until snap's generation settles, showing a spinner meanwhile.
func (h *host) await(ctx context.Context, snap session.Snapshot) (session.Snapshot, error) {
	if !snap.Pending {
		return h.sess.Wait(ctx)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(h.status),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription(pendingLabel(snap)),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = bar.Add(1)
			}
		}
	}()

	settled, err := h.sess.Wait(ctx)
	close(done)
	wg.Wait()
	_ = bar.Clear()
	return settled, err
}

func pendingLabel(snap session.Snapshot) string {
	switch snap.State {
	case session.StatePlanning:
		return "Planning your path"
	case session.StateQuizGeneration:
		return "Writing a quiz"
	}
	if snap.Mode == pipeline.ModeSimplified {
		return "Rewriting the lesson more simply"
	}
	return "Preparing the lesson"
}

func (h *host) ask(ctx context.Context, p string) (string, error) {
	lipgloss.Fprint(h.out, theme.Prompt.Render(p))
	select {
	case line, ok := <-h.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func prompt(snap session.Snapshot) string {
	switch snap.State {
	case session.StateQuiz:
		return "Answers> "
	case session.StateResult:
		return "Next> "
	}
	return "> "
}

func (h *host) println(s string) {
	lipgloss.Fprintln(h.out, s)
}

func (h *host) render(snap session.Snapshot) {
	if snap.State == session.StateIdle {
		if snap.Err != nil {
			h.println(theme.ErrorText.Render("Could not continue: " + snap.Err.Error()))
		}
		return
	}

	h.println("")
	h.println(theme.Title.Render(snap.Topic))
	h.renderProgress(snap)
	h.renderPath(snap.Checkpoints)

	if snap.Err != nil {
		h.println(theme.ErrorText.Render(snap.Err.Error()))
	}

	switch snap.State {
	case session.StateLearning, session.StateFeynman:
		if cp, ok := snap.ActiveCheckpoint(); ok {
			heading := fmt.Sprintf("Checkpoint %d: %s", cp.ID+1, cp.Title)
			if snap.Mode == pipeline.ModeSimplified {
				heading += fmt.Sprintf(" (simplified, attempt %d)", snap.Attempts+1)
			}
			h.println(theme.Heading.Render(heading))
		}
		h.println(theme.Card.Render(theme.Body.Render(strings.TrimSpace(snap.ActiveContent))))
		h.println(theme.Hint.Render("[v] take the quiz  [q] quit"))

	case session.StateQuiz:
		h.renderQuiz(snap.ActiveQuiz)
		h.println(theme.Hint.Render("Answer with option numbers, e.g. 1 3 2  [q] quit"))

	case session.StateResult:
		h.renderResult(snap)

	case session.StateComplete:
		h.println(theme.Correct.Render(fmt.Sprintf("Path complete: %d of %d checkpoints mastered.",
			snap.Completed(), len(snap.Checkpoints))))
	}
}

func (h *host) renderProgress(snap session.Snapshot) {
	total := len(snap.Checkpoints)
	if total == 0 {
		return
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(h.out),
		progressbar.OptionSetDescription("Checkpoints"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetRenderBlankState(true),
	)
	_ = bar.Set(snap.Completed())
	h.println("")
}

func (h *host) renderPath(cps []checkpoint.Checkpoint) {
	for _, cp := range cps {
		var line string
		switch cp.Status {
		case checkpoint.StatusCompleted:
			line = theme.Completed.Render(fmt.Sprintf("  ✓ %d. %s", cp.ID+1, cp.Title))
		case checkpoint.StatusCurrent:
			line = theme.Current.Render(fmt.Sprintf("  ▸ %d. %s", cp.ID+1, cp.Title))
		default:
			line = theme.Locked.Render(fmt.Sprintf("    %d. %s", cp.ID+1, cp.Title))
		}
		h.println(line)
	}
}

func (h *host) renderQuiz(qs []quiz.Question) {
	for i, q := range qs {
		h.println(theme.Heading.Render(fmt.Sprintf("Q%d. %s", i+1, q.Question)))
		for j, opt := range q.Options {
			h.println(fmt.Sprintf("   %d) %s", j+1, opt))
		}
	}
}

func (h *host) renderResult(snap session.Snapshot) {
	r := snap.LastResult
	if r == nil {
		return
	}
	score := fmt.Sprintf("Score: %d (%d/%d correct)", r.Score, r.Correct, r.Total)
	if r.Passed {
		h.println(theme.Correct.Render(score))
	} else {
		h.println(theme.Incorrect.Render(score))
	}
	if r.Feedback != "" {
		h.println(theme.Body.Render(r.Feedback))
	}

	d := session.Adapt(*r, snap.ActiveIndex, len(snap.Checkpoints))
	switch d.Action {
	case session.ActionAdvance:
		h.println(theme.Hint.Render("[p] next checkpoint  [q] quit"))
	case session.ActionComplete:
		h.println(theme.Hint.Render("[p] finish the path  [q] quit"))
	case session.ActionSimplify:
		h.println(theme.Hint.Render("[s] explain it more simply  [q] quit"))
	}
}
