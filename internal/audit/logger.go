package audit

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stridelog/internal/ids"
	"stridelog/internal/obs"
	"stridelog/internal/token"
)

const defaultAppendTimeout = 3 * time.Second

// Logger classifies and persists security events. A failure to persist never
// escalates to the caller: it is reported on a throttled fallback channel
// and counted, so audit problems degrade observability rather than requests.
type Logger struct {
	store     Store
	fallback  zerolog.Logger
	limiter   *rate.Limiter
	collector *obs.Collector
	timeout   time.Duration
	now       func() time.Time
}

// LoggerOption configures Logger behavior.
type LoggerOption func(*Logger)

// WithFallback sets the logger that receives persistence failures.
func WithFallback(l zerolog.Logger) LoggerOption {
	return func(lg *Logger) { lg.fallback = l }
}

// WithCollector counts persistence failures on the security metrics
// collector.
func WithCollector(c *obs.Collector) LoggerOption {
	return func(lg *Logger) { lg.collector = c }
}

// WithAppendTimeout bounds each store append.
func WithAppendTimeout(d time.Duration) LoggerOption {
	return func(lg *Logger) {
		if d > 0 {
			lg.timeout = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) LoggerOption {
	return func(lg *Logger) {
		if fn != nil {
			lg.now = fn
		}
	}
}

// NewLogger constructs a Logger over the given store.
func NewLogger(store Store, opts ...LoggerOption) *Logger {
	lg := &Logger{
		store:    store,
		fallback: *obs.Logger(),
		// At most one fallback line per second with small bursts, so a
		// dead store cannot flood the log stream.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		timeout: defaultAppendTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(lg)
	}
	return lg
}

// EventOption adjusts a single event before it is appended.
type EventOption func(*Event)

// WithActor sets the acting user explicitly, overriding any identity found
// in the context.
func WithActor(actorID string) EventOption {
	return func(e *Event) { e.ActorID = actorID }
}

// Log derives the risk level, stamps identity and correlation data from the
// context, and appends the event. The append is synchronous so ordering
// within a request holds, but errors are swallowed after being reported on
// the fallback channel.
func (l *Logger) Log(ctx context.Context, action, resource string, outcome Outcome, details map[string]any, opts ...EventOption) {
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}
	event := Event{
		ID:            ids.New(),
		Timestamp:     l.now().UTC(),
		Action:        action,
		Resource:      resource,
		Outcome:       outcome,
		RiskLevel:     RiskFor(action, outcome),
		Details:       details,
		CorrelationID: CorrelationIDFromContext(ctx),
	}
	if claims, ok := token.ClaimsFromContext(ctx); ok {
		event.ActorID = claims.Subject
	}
	for _, opt := range opts {
		opt(&event)
	}

	// The append must survive the caller's cancellation: an aborted request
	// is exactly the kind of action worth recording.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if err := l.store.Append(appendCtx, &event); err != nil {
		if l.collector != nil {
			l.collector.Increment("audit_write_failure")
		}
		if l.limiter.Allow() {
			l.fallback.Error().
				Err(err).
				Str("action", event.Action).
				Str("resource", event.Resource).
				Str("outcome", string(event.Outcome)).
				Msg("audit append failed")
		}
	}
}

// Query is a validated pass-through read. Results come back newest first.
func (l *Logger) Query(ctx context.Context, filter Filter) ([]Event, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return l.store.Query(ctx, filter)
}

// Statistics aggregates events within the named timeframe ending now.
func (l *Logger) Statistics(ctx context.Context, timeframe string) (Statistics, error) {
	window, err := ParseWindow(timeframe)
	if err != nil {
		return Statistics{}, err
	}
	since := l.now().UTC().Add(-window.Duration())
	stats, err := l.store.Statistics(ctx, since)
	if err != nil {
		return Statistics{}, err
	}
	stats.Window = window
	return stats, nil
}

type correlationContextKey struct{}

// WithCorrelationID attaches a request correlation identifier to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationContextKey{}, id)
}

// CorrelationIDFromContext extracts the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(correlationContextKey{}).(string); ok {
		return v
	}
	return ""
}
