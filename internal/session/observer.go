package session

import (
	"context"
	"log/slog"

	"github.com/abhisek/feynman/internal/store"
)

// Event describes one state change.
type Event struct {
	SessionID  string
	Trigger    Trigger
	From, To   State
	Topic      string
	Checkpoint int // -1 when no checkpoint is active
	Score      int // -1 unless the event carries a quiz result
	Err        error
}

// Recorder receives every state change, in order.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Metrics receives session measurements.
type Metrics interface {
	ObserveTransition(from, to string)
	ObserveQuizScore(score int)
	ObserveStaleGeneration(op string)
}

// StoreRecorder writes session events to the audit log.
type StoreRecorder struct {
	repo store.EventRepo
}

// NewStoreRecorder creates a Recorder backed by repo.
func NewStoreRecorder(repo store.EventRepo) *StoreRecorder {
	return &StoreRecorder{repo: repo}
}

func (r *StoreRecorder) Record(ctx context.Context, ev Event) error {
	action := store.ActionTransition
	switch ev.Trigger {
	case TriggerStart:
		action = store.ActionStart
	case TriggerSubmit:
		action = store.ActionQuizResult
	case TriggerEnd:
		action = store.ActionEnd
	}

	detail := ev.Trigger.String()
	if ev.Err != nil {
		detail += ": " + ev.Err.Error()
	}

	return r.repo.AppendSessionEvent(ctx, store.SessionEventData{
		SessionID:  ev.SessionID,
		Action:     action,
		FromState:  ev.From.String(),
		ToState:    ev.To.String(),
		Topic:      ev.Topic,
		Checkpoint: ev.Checkpoint,
		Score:      ev.Score,
		Detail:     detail,
	})
}

// dispatch fans events out to the optional recorder and metrics.
func dispatch(ctx context.Context, logger *slog.Logger, rec Recorder, m Metrics, events []Event) {
	for _, ev := range events {
		logger.Debug("session transition",
			"session", ev.SessionID, "trigger", ev.Trigger,
			"from", ev.From, "to", ev.To, "checkpoint", ev.Checkpoint)

		if m != nil {
			m.ObserveTransition(ev.From.String(), ev.To.String())
			if ev.Trigger == TriggerSubmit && ev.Score >= 0 {
				m.ObserveQuizScore(ev.Score)
			}
		}
		if rec != nil {
			if err := rec.Record(ctx, ev); err != nil {
				logger.Warn("failed to record session event", "session", ev.SessionID, "error", err)
			}
		}
	}
}
