package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const sessionEventsTable = "session_events"

var sessionEventColumns = []string{
	"seq", "created_at", "session_id", "action", "from_state", "to_state",
	"topic", "checkpoint", "score", "detail",
}

func (r *eventRepo) AppendSessionEvent(ctx context.Context, data SessionEventData) error {
	if data.SessionID == "" {
		return fmt.Errorf("session event without session id")
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := r.builder.Insert(sessionEventsTable).
		Columns(sessionEventColumns...).
		Values(
			seqNum, time.Now().UnixMilli(), data.SessionID, data.Action,
			data.FromState, data.ToState, data.Topic, data.Checkpoint,
			data.Score, data.Detail,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

func (r *eventRepo) QuerySessionEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]SessionEvent, error) {
	sel := r.builder.Select(sessionEventColumns...).
		From(r.builder.Table(sessionEventsTable)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("seq")
	applyOpts(sel, opts)

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var (
			e  SessionEvent
			ts int64
		)
		if err := rows.Scan(
			&e.Sequence, &ts, &e.SessionID, &e.Action, &e.FromState,
			&e.ToState, &e.Topic, &e.Checkpoint, &e.Score, &e.Detail,
		); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepo) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	sel := r.builder.Select(
		"session_id",
		entsql.Max("topic"),
		entsql.Min("created_at"),
		entsql.Max("created_at"),
		entsql.Count("*"),
	).
		From(r.builder.Table(sessionEventsTable)).
		GroupBy("session_id").
		OrderBy(entsql.Desc(entsql.Max("seq")))
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []SessionSummary
	for rows.Next() {
		var (
			s           SessionSummary
			first, last int64
		)
		if err := rows.Scan(&s.SessionID, &s.Topic, &first, &last, &s.Events); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		s.StartedAt = time.UnixMilli(first)
		s.LastSeen = time.UnixMilli(last)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the connection before issuing per-session queries; an
	// in-memory SQLite database may only have one.
	rows.Close()

	for i := range sessions {
		state, err := r.lastState(ctx, sessions[i].SessionID)
		if err != nil {
			return nil, err
		}
		sessions[i].LastState = state
	}
	return sessions, nil
}

// lastState returns the most recent non-empty to_state recorded for a session.
func (r *eventRepo) lastState(ctx context.Context, sessionID string) (string, error) {
	query, args := r.builder.Select("to_state").
		From(r.builder.Table(sessionEventsTable)).
		Where(entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.NEQ("to_state", ""),
		)).
		OrderBy(entsql.Desc("seq")).
		Limit(1).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("query last state: %w", err)
	}
	defer rows.Close()

	var state string
	if rows.Next() {
		if err := rows.Scan(&state); err != nil {
			return "", fmt.Errorf("scan last state: %w", err)
		}
	}
	return state, rows.Err()
}
