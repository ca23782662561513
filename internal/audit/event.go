// Package audit records and queries classified security events. Events are
// append-only: once written they are never mutated or deleted by the
// application; retention is an external policy.
package audit

import (
	"strings"
	"time"
)

// Outcome is the result of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// RiskLevel classifies how concerning an event is. It is derived exclusively
// through RiskFor; callers never set it directly.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Well-known action names. Free-form actions are allowed; these cover the
// trust core and its auth surface.
const (
	ActionLogin      = "auth.login"
	ActionRegister   = "auth.register"
	ActionRefresh    = "auth.refresh"
	ActionLogout     = "auth.logout"
	ActionTokenIssue = "auth.token.issued"

	ActionAuthorization = "authz.check"
	ActionEscalation    = "authz.escalation"

	ActionValidationInput     = "validation.input"
	ActionValidationInjection = "validation.injection"

	ActionSuspiciousActivity = "security.suspicious_activity"
	ActionDecryptionFailure  = "crypto.decrypt"
)

// Event is one immutable security-relevant record.
type Event struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	ActorID       string         `json:"actor_id,omitempty"`
	Action        string         `json:"action"`
	Resource      string         `json:"resource"`
	Outcome       Outcome        `json:"outcome"`
	RiskLevel     RiskLevel      `json:"risk_level"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// RiskFor derives the risk level from the action and outcome. The derivation
// is a fixed table: identical inputs always classify identically.
func RiskFor(action string, outcome Outcome) RiskLevel {
	if action == ActionSuspiciousActivity {
		return RiskHigh
	}
	if outcome == OutcomeSuccess {
		return RiskLow
	}
	switch {
	case action == ActionValidationInjection:
		return RiskCritical
	case action == ActionEscalation:
		return RiskHigh
	case strings.HasPrefix(action, "authz."):
		return RiskHigh
	case strings.HasPrefix(action, "validation."):
		return RiskHigh
	case strings.HasPrefix(action, "auth."):
		return RiskMedium
	default:
		return RiskMedium
	}
}
