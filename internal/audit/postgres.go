package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stridelog/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL through database/sql (pgx stdlib
// driver). Events land in the append-only audit_events table.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle. The caller owns the pool.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = ids.New()
	}
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into audit_events(id, occurred_at, actor_id, action, resource, outcome, risk_level, details, correlation_id)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		event.ID, event.Timestamp, event.ActorID, event.Action, event.Resource,
		string(event.Outcome), string(event.RiskLevel), details, event.CorrelationID,
	)
	return err
}

func (s *PGStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = filter.normalized()

	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.Resource != "" {
		add("resource = $%d", filter.Resource)
	}
	if filter.Outcome != "" {
		add("outcome = $%d", string(filter.Outcome))
	}
	if filter.RiskLevel != "" {
		add("risk_level = $%d", string(filter.RiskLevel))
	}
	if !filter.Start.IsZero() {
		add("occurred_at >= $%d", filter.Start)
	}
	if !filter.End.IsZero() {
		add("occurred_at <= $%d", filter.End)
	}

	query := `select id, occurred_at, actor_id, action, resource, outcome, risk_level, details, correlation_id from audit_events`
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " and ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" order by occurred_at desc, id desc limit $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" offset $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e       Event
			outcome string
			risk    string
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActorID, &e.Action, &e.Resource, &outcome, &risk, &details, &e.CorrelationID); err != nil {
			return nil, err
		}
		e.Outcome = Outcome(outcome)
		e.RiskLevel = RiskLevel(risk)
		if len(details) > 0 {
			_ = json.Unmarshal(details, &e.Details)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) Statistics(ctx context.Context, since time.Time) (Statistics, error) {
	stats := newStatistics(since)

	rows, err := s.db.QueryContext(ctx,
		`select action, outcome, risk_level, count(*) from audit_events
		 where occurred_at >= $1
		 group by action, outcome, risk_level`, since)
	if err != nil {
		return Statistics{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			action  string
			outcome string
			risk    string
			count   int
		)
		if err := rows.Scan(&action, &outcome, &risk, &count); err != nil {
			return Statistics{}, err
		}
		stats.Total += count
		stats.ByAction[action] += count
		stats.ByOutcome[Outcome(outcome)] += count
		stats.ByRiskLevel[RiskLevel(risk)] += count
	}
	return stats, rows.Err()
}
