package audit

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryCapacity = 10000

// MemoryStore keeps events in a bounded in-process ring. Used in development
// and tests; production deployments back the logger with Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
	max    int
}

// NewMemoryStore constructs a bounded store. max <= 0 selects the default
// capacity; the oldest events are dropped once the bound is reached.
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = defaultMemoryCapacity
	}
	return &MemoryStore{max: max}
}

func (s *MemoryStore) Append(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	if len(s.events) > s.max {
		s.events = s.events[len(s.events)-s.max:]
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, filter Filter) ([]Event, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = filter.normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Walk backwards: newest first.
	out := make([]Event, 0, filter.Limit)
	skipped := 0
	for i := len(s.events) - 1; i >= 0 && len(out) < filter.Limit; i-- {
		e := s.events[i]
		if !filter.matches(e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) Statistics(_ context.Context, since time.Time) (Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := newStatistics(since)
	for _, e := range s.events {
		if e.Timestamp.Before(since) {
			continue
		}
		stats.Total++
		stats.ByAction[e.Action]++
		stats.ByOutcome[e.Outcome]++
		stats.ByRiskLevel[e.RiskLevel]++
	}
	return stats, nil
}

// Len reports the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
