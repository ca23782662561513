package audit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidFilter marks malformed query filters and statistics windows.
var ErrInvalidFilter = errors.New("audit: invalid filter")

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// Store is the append-only event store. Query results are ordered
// reverse-chronologically: the newest event comes first.
type Store interface {
	Append(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter Filter) ([]Event, error)
	// Statistics aggregates events with Timestamp >= since.
	Statistics(ctx context.Context, since time.Time) (Statistics, error)
}

// Filter narrows a query. Zero values match everything on that dimension.
type Filter struct {
	ActorID   string
	Action    string
	Resource  string
	Outcome   Outcome
	RiskLevel RiskLevel
	Start     time.Time
	End       time.Time
	Limit     int
	Offset    int
}

// Validate rejects structurally invalid filters.
func (f Filter) Validate() error {
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidFilter)
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return fmt.Errorf("%w: end precedes start", ErrInvalidFilter)
	}
	switch f.Outcome {
	case "", OutcomeSuccess, OutcomeFailure:
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidFilter, f.Outcome)
	}
	switch f.RiskLevel {
	case "", RiskLow, RiskMedium, RiskHigh, RiskCritical:
	default:
		return fmt.Errorf("%w: unknown risk level %q", ErrInvalidFilter, f.RiskLevel)
	}
	return nil
}

func (f Filter) normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = defaultQueryLimit
	}
	if f.Limit > maxQueryLimit {
		f.Limit = maxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (f Filter) matches(e Event) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Resource != "" && e.Resource != f.Resource {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.RiskLevel != "" && e.RiskLevel != f.RiskLevel {
		return false
	}
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Timestamp.After(f.End) {
		return false
	}
	return true
}

// Window buckets statistics requests.
type Window string

const (
	WindowHour  Window = "hour"
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// ParseWindow validates a timeframe name.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowHour, WindowDay, WindowWeek, WindowMonth:
		return Window(s), nil
	default:
		return "", fmt.Errorf("%w: unknown timeframe %q", ErrInvalidFilter, s)
	}
}

// Duration returns the window length. Months are approximated as 30 days.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Statistics aggregates event counts within a window.
type Statistics struct {
	Window      Window                `json:"window,omitempty"`
	Since       time.Time             `json:"since"`
	Total       int                   `json:"total"`
	ByAction    map[string]int        `json:"by_action"`
	ByOutcome   map[Outcome]int       `json:"by_outcome"`
	ByRiskLevel map[RiskLevel]int     `json:"by_risk_level"`
}

func newStatistics(since time.Time) Statistics {
	return Statistics{
		Since:       since,
		ByAction:    make(map[string]int),
		ByOutcome:   make(map[Outcome]int),
		ByRiskLevel: make(map[RiskLevel]int),
	}
}
