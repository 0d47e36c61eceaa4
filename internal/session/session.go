// Package session is the learning session orchestrator: a state machine that
// plans a checkpoint path, teaches each checkpoint, verifies it with a quiz
// and adapts to the result.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/feynman/internal/checkpoint"
	"github.com/abhisek/feynman/internal/pipeline"
	"github.com/abhisek/feynman/internal/quiz"
)

// Generator produces session content. *pipeline.Pipeline implements it.
type Generator interface {
	PlanPath(ctx context.Context, topic, notes string) ([]checkpoint.Item, error)
	GenerateLesson(ctx context.Context, topic string, cp checkpoint.Checkpoint, mode pipeline.Mode) (string, error)
	GenerateQuiz(ctx context.Context, lesson string) ([]quiz.Question, error)
}

// Options configures optional session collaborators.
type Options struct {
	Recorder Recorder
	Metrics  Metrics
	Feedback quiz.FeedbackSource // defaults to quiz.RandomFeedback
	Logger   *slog.Logger
}

type listener struct {
	id int
	fn func(Snapshot)
}

// Session owns the state of one learner working through one topic. All
// methods are safe for concurrent use. At most one generation is in flight
// at a time; its result is applied only if the session has not been reset
// or moved on since it was issued. Generation runs under the context passed
// to the triggering method.
type Session struct {
	gen      Generator
	recorder Recorder
	metrics  Metrics
	feedback quiz.FeedbackSource
	logger   *slog.Logger

	mu        sync.Mutex
	id        string
	state     State
	topic     string
	notes     string
	path      checkpoint.Path
	active    int
	content   string
	questions []quiz.Question
	result    *quiz.Result
	mode      pipeline.Mode
	attempts  int
	err       error
	pending   bool
	epoch     uint64
	version   uint64
	changed   chan struct{}
	outbox    []Event
	listeners []listener
	nextID    int

	// notifyMu serialises delivery so events and snapshots leave in order.
	notifyMu  sync.Mutex
	delivered uint64
}

// New creates an idle session.
func New(gen Generator, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	feedback := opts.Feedback
	if feedback == nil {
		feedback = quiz.RandomFeedback{}
	}
	return &Session{
		gen:      gen,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		feedback: feedback,
		logger:   logger,
		state:    StateIdle,
		mode:     pipeline.ModeStandard,
		changed:  make(chan struct{}),
	}
}

// Start plans a path for topic and loads its first checkpoint. It is a
// no-op while a generation is in flight.
func (s *Session) Start(ctx context.Context, topic, notes string) (Snapshot, error) {
	s.mu.Lock()
	if s.pending {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	if _, err := next(s.state, TriggerStart); err != nil {
		return s.reject(err)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return s.reject(ErrEmptyTopic)
	}

	s.clearLocked()
	s.id = uuid.NewString()
	s.topic = topic
	s.notes = notes
	s.transitionLocked(TriggerStart, -1, nil)
	epoch := s.beginLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.flush()

	go s.runPlan(ctx, epoch, topic, notes)
	return snap, nil
}

// RequestVerification generates a quiz for the active lesson.
func (s *Session) RequestVerification(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if err := s.guardLocked(TriggerVerify); err != nil {
		return s.reject(err)
	}
	if s.content == "" {
		return s.reject(ErrNoContent)
	}

	failTrigger := TriggerQuizFailed
	if s.state == StateFeynman {
		failTrigger = TriggerSimplifiedQuizFailed
	}
	s.err = nil
	s.transitionLocked(TriggerVerify, -1, nil)
	epoch := s.beginLocked()
	lesson := s.content
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.flush()

	go s.runQuiz(ctx, epoch, lesson, failTrigger)
	return snap, nil
}

// Submit scores answers against the active quiz. A submission whose length
// does not match the quiz fails with quiz.ErrIncompleteSubmission and
// leaves the session in the quiz.
func (s *Session) Submit(answers []int) (Snapshot, error) {
	s.mu.Lock()
	if err := s.guardLocked(TriggerSubmit); err != nil {
		return s.reject(err)
	}

	res, err := quiz.Evaluate(s.questions, answers, s.feedback)
	if err != nil {
		s.err = err
		s.touchLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.flush()
		return snap, err
	}

	s.result = &res
	s.err = nil
	s.transitionLocked(TriggerSubmit, res.Score, nil)
	return s.commit()
}

// Proceed moves past a passed checkpoint: it loads the next one, or
// completes the session after the last.
func (s *Session) Proceed(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if err := s.guardLocked(TriggerAdvance); err != nil {
		return s.reject(err)
	}
	d := Adapt(*s.result, s.active, s.path.Len())
	if d.Action == ActionSimplify {
		return s.reject(ErrNotPassed)
	}

	nextIdx, ok, err := s.path.Advance(s.active)
	if err != nil {
		return s.reject(err)
	}
	s.err = nil
	if !ok {
		s.questions = nil
		s.transitionLocked(TriggerComplete, -1, nil)
		return s.commit()
	}

	s.transitionLocked(TriggerAdvance, -1, nil)
	return s.loadCheckpoint(ctx, nextIdx, pipeline.ModeStandard)
}

// Simplify re-teaches a failed checkpoint in simplified form.
func (s *Session) Simplify(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if err := s.guardLocked(TriggerSimplify); err != nil {
		return s.reject(err)
	}
	if d := Adapt(*s.result, s.active, s.path.Len()); d.Action != ActionSimplify {
		return s.reject(ErrAlreadyPassed)
	}

	s.err = nil
	s.attempts++
	s.transitionLocked(TriggerSimplify, -1, nil)
	return s.loadCheckpoint(ctx, s.active, pipeline.ModeSimplified)
}

// EndSession resets the session to idle. A generation still in flight is
// not aborted; its result is discarded when it arrives.
func (s *Session) EndSession() (Snapshot, error) {
	s.mu.Lock()
	if s.state.IsTerminal() {
		return s.reject(ErrSessionComplete)
	}
	if s.state == StateIdle {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}

	s.epoch++
	s.pending = false
	s.transitionLocked(TriggerEnd, -1, nil)
	s.clearLocked()
	s.id = ""
	s.topic = ""
	s.notes = ""
	s.err = nil
	return s.commit()
}

// Snapshot returns a copy of the current session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until no generation is in flight and every change so far has
// been delivered to the recorder and subscribers, then returns the session.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		if !s.pending {
			s.mu.Unlock()
			s.flush()
			return s.Snapshot(), nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// Subscribe registers fn to receive a snapshot after changes. Snapshots
// arrive in order but may be coalesced. fn must not call back into the
// session synchronously. The returned function unsubscribes.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// loadCheckpoint activates checkpoint index in the given mode and starts
// generating its lesson. The caller holds s.mu and has already moved the
// session into Learning or Feynman; loadCheckpoint releases the lock. An
// index outside the path fails like a lesson would.
func (s *Session) loadCheckpoint(ctx context.Context, index int, mode pipeline.Mode) (Snapshot, error) {
	cp, err := s.path.At(index)
	if err != nil {
		s.failLocked(TriggerLessonFailed, err)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.flush()
		return snap, err
	}
	if mode == pipeline.ModeStandard {
		s.attempts = 0
	}
	s.active = index
	s.content = ""
	s.questions = nil
	s.result = nil
	s.mode = mode
	epoch := s.beginLocked()
	topic := s.topic
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.flush()

	go s.runLesson(ctx, epoch, topic, cp, mode)
	return snap, nil
}

func (s *Session) runPlan(ctx context.Context, epoch uint64, topic, notes string) {
	items, err := s.gen.PlanPath(ctx, topic, notes)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.stale(pipeline.OpPlan)
		return
	}
	if err == nil {
		err = s.path.Plan(items)
	}
	if err != nil {
		s.failLocked(TriggerPlanFailed, err)
		s.mu.Unlock()
		s.flush()
		return
	}

	s.transitionLocked(TriggerPlanned, -1, nil)
	if _, err := s.loadCheckpoint(ctx, 0, pipeline.ModeStandard); err != nil {
		s.logger.Error("loading first checkpoint", "session", s.Snapshot().ID, "error", err)
	}
}

func (s *Session) runLesson(ctx context.Context, epoch uint64, topic string, cp checkpoint.Checkpoint, mode pipeline.Mode) {
	text, err := s.gen.GenerateLesson(ctx, topic, cp, mode)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.stale(pipeline.OpLesson)
		return
	}
	if err != nil {
		s.failLocked(TriggerLessonFailed, err)
		s.mu.Unlock()
		s.flush()
		return
	}

	s.pending = false
	s.content = text
	s.touchLocked()
	s.mu.Unlock()
	s.flush()
}

func (s *Session) runQuiz(ctx context.Context, epoch uint64, lesson string, failTrigger Trigger) {
	qs, err := s.gen.GenerateQuiz(ctx, lesson)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.stale(pipeline.OpQuiz)
		return
	}
	s.pending = false
	if err == nil && len(qs) == 0 {
		err = pipeline.ErrMalformedResponse
	}
	if err != nil {
		s.err = err
		s.transitionLocked(failTrigger, -1, err)
		s.mu.Unlock()
		s.flush()
		return
	}

	s.questions = qs
	s.transitionLocked(TriggerQuizReady, -1, nil)
	s.mu.Unlock()
	s.flush()
}

// failLocked ends a failed plan or lesson generation: the session returns
// to idle with the error surfaced and the topic kept for a retry.
func (s *Session) failLocked(t Trigger, err error) {
	s.pending = false
	s.err = err
	s.transitionLocked(t, -1, err)
	s.clearLocked()
	s.logger.Warn("generation failed", "session", s.id, "trigger", t, "error", err)
}

// guardLocked checks the common preconditions of a learner trigger.
func (s *Session) guardLocked(t Trigger) error {
	if s.pending {
		return ErrGenerationInFlight
	}
	_, err := next(s.state, t)
	return err
}

// beginLocked marks a generation as in flight and returns its tag.
func (s *Session) beginLocked() uint64 {
	s.epoch++
	s.pending = true
	s.touchLocked()
	return s.epoch
}

func (s *Session) transitionLocked(t Trigger, score int, cause error) {
	to, err := next(s.state, t)
	if err != nil {
		// Callers check the edge first; reaching here is a programming error.
		panic(err)
	}
	cp := -1
	if s.path.Len() > 0 {
		cp = s.active
	}
	s.outbox = append(s.outbox, Event{
		SessionID:  s.id,
		Trigger:    t,
		From:       s.state,
		To:         to,
		Topic:      s.topic,
		Checkpoint: cp,
		Score:      score,
		Err:        cause,
	})
	s.state = to
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

// clearLocked drops the path and all checkpoint content.
func (s *Session) clearLocked() {
	s.path.Reset()
	s.active = 0
	s.content = ""
	s.questions = nil
	s.result = nil
	s.mode = pipeline.ModeStandard
	s.attempts = 0
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		State:         s.state,
		Topic:         s.topic,
		Checkpoints:   s.path.Checkpoints(),
		ActiveIndex:   s.active,
		ActiveContent: s.content,
		ActiveQuiz:    cloneQuestions(s.questions),
		Pending:       s.pending,
		Mode:          s.mode,
		Attempts:      s.attempts,
		Err:           s.err,
		Version:       s.version,
	}
	if s.result != nil {
		r := *s.result
		snap.LastResult = &r
	}
	return snap
}

// reject releases the lock and returns err with an unchanged snapshot.
func (s *Session) reject(err error) (Snapshot, error) {
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return snap, err
}

// commit releases the lock, delivers pending changes and returns the
// resulting snapshot.
func (s *Session) commit() (Snapshot, error) {
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.flush()
	return snap, nil
}

func (s *Session) flush() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	events := s.outbox
	s.outbox = nil
	snap := s.snapshotLocked()
	listeners := append([]listener(nil), s.listeners...)
	s.mu.Unlock()

	dispatch(context.Background(), s.logger, s.recorder, s.metrics, events)

	if snap.Version <= s.delivered {
		return
	}
	s.delivered = snap.Version
	for _, l := range listeners {
		l.fn(snap)
	}
}

func (s *Session) stale(op pipeline.Op) {
	s.logger.Debug("discarding stale generation", "op", op)
	if s.metrics != nil {
		s.metrics.ObserveStaleGeneration(string(op))
	}
}
