package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// registrant creation and verification decisions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring,
	// such as rejected webhook signatures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and
	// operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time
	RegistrantID uuid.UUID
	ApplicantID  string
	Action       string
	// Decision carries the applied verification status for status events.
	Decision string
	Reason   string
	// Trigger distinguishes webhook-driven from poll-driven transitions.
	Trigger   string
	RequestID string
	ClientIP  string
}

// AuditEvent names the actions this service emits.
type AuditEvent string

const (
	EventRegistrantCreated AuditEvent = "registrant_created"
	EventApplicantCreated  AuditEvent = "applicant_created"
	EventTokenIssued       AuditEvent = "verification_token_issued"
	EventStatusChanged     AuditEvent = "verification_status_changed"
	EventStatusConflict    AuditEvent = "verification_status_conflict"
	EventWebhookRejected   AuditEvent = "webhook_signature_rejected"
	EventWebhookUnmatched  AuditEvent = "webhook_applicant_unmatched"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventRegistrantCreated: CategoryCompliance,
	EventApplicantCreated:  CategoryCompliance,
	EventStatusChanged:     CategoryCompliance,
	EventStatusConflict:    CategorySecurity,
	EventWebhookRejected:   CategorySecurity,
	EventWebhookUnmatched:  CategorySecurity,
	EventTokenIssued:       CategoryOperations,
}

// Category returns the category for an event, defaulting to operations.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
