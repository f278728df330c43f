package audit

import "time"

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention and routing: compliance events outlive security events,
// operations events may be sampled.
type EventCategory string

const (
	CategoryCompliance EventCategory = "compliance"
	CategorySecurity   EventCategory = "security"
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key identity actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	AccountID string        `json:"account_id,omitempty"`
	Action    string        `json:"action"`
	Email     string        `json:"email,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
	// Client is a parsed browser/OS summary, never the raw User-Agent.
	Client string `json:"client,omitempty"`
}

type AuditEvent string

const (
	EventAccountCreated  AuditEvent = "account_created"
	EventAccountDeleted  AuditEvent = "account_deleted"
	EventLoginSucceeded  AuditEvent = "login_succeeded"
	EventLoginFailed     AuditEvent = "login_failed"
	EventLoginThrottled  AuditEvent = "login_throttled"
	EventOAuthLogin      AuditEvent = "oauth_login"
	EventTokenIssued     AuditEvent = "token_issued"
	EventPasswordChanged AuditEvent = "password_changed"

	EventEmailChangeRequested AuditEvent = "email_change_requested"
	EventEmailChangeConfirmed AuditEvent = "email_change_confirmed"
	EventEmailChangeExpired   AuditEvent = "email_change_expired"

	EventDisplayNameUpdated AuditEvent = "display_name_updated"
	EventRUTAssigned        AuditEvent = "rut_assigned"

	// EventLegacyCredentialUsed fires when the plaintext credential fallback
	// authenticated a login. Operators watch this to track migration debt.
	EventLegacyCredentialUsed AuditEvent = "legacy_credential_used"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccountCreated:       CategoryCompliance,
	EventAccountDeleted:       CategoryCompliance,
	EventEmailChangeConfirmed: CategoryCompliance,
	EventRUTAssigned:          CategoryCompliance,

	EventLoginFailed:          CategorySecurity,
	EventLoginThrottled:       CategorySecurity,
	EventPasswordChanged:      CategorySecurity,
	EventEmailChangeRequested: CategorySecurity,
	EventEmailChangeExpired:   CategorySecurity,
	EventLegacyCredentialUsed: CategorySecurity,

	EventLoginSucceeded:     CategoryOperations,
	EventOAuthLogin:         CategoryOperations,
	EventTokenIssued:        CategoryOperations,
	EventDisplayNameUpdated: CategoryOperations,
}

// CategoryOf returns the category for a known event, defaulting to
// operations for anything unmapped.
func CategoryOf(action AuditEvent) EventCategory {
	if c, ok := eventCategories[action]; ok {
		return c
	}
	return CategoryOperations
}
