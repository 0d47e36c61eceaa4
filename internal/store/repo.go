package store

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // LLM events only; empty matches all
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// UsageStat aggregates LLM calls sharing a key (purpose or model).
type UsageStat struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int64
	OutputTokens int64
	AvgLatencyMs float64
}

// Session event actions.
const (
	ActionStart      = "start"
	ActionTransition = "transition"
	ActionQuizResult = "quiz_result"
	ActionEnd        = "end"
)

// SessionEventData captures one entry of a learning session's audit trail.
type SessionEventData struct {
	SessionID  string
	Action     string
	FromState  string
	ToState    string
	Topic      string
	Checkpoint int // active checkpoint index, -1 when none
	Score      int // quiz score, -1 when not applicable
	Detail     string
}

// SessionEvent is a stored session event.
type SessionEvent struct {
	Sequence  int64
	Timestamp time.Time
	SessionEventData
}

// SessionSummary is one row of the session history listing.
type SessionSummary struct {
	SessionID string
	Topic     string
	StartedAt time.Time
	LastSeen  time.Time
	Events    int
	LastState string
}

// EventRepo provides append and query access to the audit log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns LLM events, most recent first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns a single LLM event by ID, or nil if absent.
	GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates calls per purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]UsageStat, error)

	// LLMUsageByModel aggregates calls per model.
	LLMUsageByModel(ctx context.Context) ([]UsageStat, error)

	// AppendSessionEvent records a session lifecycle event.
	AppendSessionEvent(ctx context.Context, data SessionEventData) error

	// QuerySessionEvents returns one session's events in sequence order.
	QuerySessionEvents(ctx context.Context, sessionID string, opts QueryOpts) ([]SessionEvent, error)

	// ListSessions summarizes the most recently active sessions.
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
}

// eventRepo implements EventRepo with ent's dialect-aware SQL builder.
type eventRepo struct {
	db      *sql.DB
	seq     *sequenceCounter
	builder *entsql.DialectBuilder
}

// applyOpts adds the sequence/time window and limit to a selector.
func applyOpts(s *entsql.Selector, opts QueryOpts) {
	if opts.After > 0 {
		s.Where(entsql.GT("seq", opts.After))
	}
	if opts.Before > 0 {
		s.Where(entsql.LT("seq", opts.Before))
	}
	if !opts.From.IsZero() {
		s.Where(entsql.GTE("created_at", opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		s.Where(entsql.LTE("created_at", opts.To.UnixMilli()))
	}
	if opts.Limit > 0 {
		s.Limit(opts.Limit)
	}
}
