package audit

import "context"

// Auth bundles the action-name presets for authentication events. Thin
// wrappers over Log with no independent logic.
type Auth struct {
	log *Logger
}

// Auth returns the authentication preset view of the logger.
func (l *Logger) Auth() Auth { return Auth{log: l} }

func (a Auth) Login(ctx context.Context, actorID string, outcome Outcome, details map[string]any) {
	a.log.Log(ctx, ActionLogin, "auth", outcome, details, WithActor(actorID))
}

func (a Auth) Register(ctx context.Context, actorID string, outcome Outcome, details map[string]any) {
	a.log.Log(ctx, ActionRegister, "auth", outcome, details, WithActor(actorID))
}

func (a Auth) Refresh(ctx context.Context, actorID string, outcome Outcome, details map[string]any) {
	a.log.Log(ctx, ActionRefresh, "auth", outcome, details, WithActor(actorID))
}

func (a Auth) Logout(ctx context.Context, actorID string, outcome Outcome, details map[string]any) {
	a.log.Log(ctx, ActionLogout, "auth", outcome, details, WithActor(actorID))
}

// Security bundles presets for non-authentication security events.
type Security struct {
	log *Logger
}

// Security returns the security preset view of the logger.
func (l *Logger) Security() Security { return Security{log: l} }

func (s Security) SuspiciousActivity(ctx context.Context, actorID, resource string, details map[string]any) {
	s.log.Log(ctx, ActionSuspiciousActivity, resource, OutcomeFailure, details, WithActor(actorID))
}
