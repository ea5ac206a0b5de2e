package audit

import (
	"context"
	"time"

	"vouchsafe/pkg/attrs"
	id "vouchsafe/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention policy downstream: program compliance events keep the long
// retention the benefits regulation requires; operations events can be sampled.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations covers events useful for debugging and visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from workflow logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time
	ApplicationID id.ApplicationID
	// ActorID is the admin or constituent who performed the action. Nil UUID
	// for system-driven events (webhooks, auto-approval).
	ActorID id.UserID
	Action  string
	// CorrelationID ties webhook-driven events back to the provider payload
	// (submission ID, fax SID).
	CorrelationID string
	RequestID     string
	Metadata      map[string]any
}

// Meta builds event metadata from slog-style key-value pairs.
func Meta(kv ...any) map[string]any {
	return attrs.ToMap(kv)
}

// AuditEvent names every action the workflow records.
type AuditEvent string

const (
	// Application lifecycle
	EventApplicationCreated      AuditEvent = "application_created"
	EventApplicationAutoApproved AuditEvent = "application_auto_approved"
	EventStatusChanged           AuditEvent = "status_changed"

	// Proof lifecycle
	EventProofAttached     AuditEvent = "proof_attached"
	EventProofApproved     AuditEvent = "proof_approved"
	EventProofRejected     AuditEvent = "proof_rejected"
	EventProofResubmitted  AuditEvent = "proof_resubmitted"
	EventAttachmentFailed  AuditEvent = "attachment_failed"
	EventCertificationSent AuditEvent = "certification_requested"

	// E-signature webhook
	EventSigningCompleted AuditEvent = "signing_completed"
	EventSigningDeclined  AuditEvent = "signing_declined"
	EventSigningReplayed  AuditEvent = "signing_webhook_replayed"

	// Fax webhook
	EventFaxStatusChanged AuditEvent = "fax_status_changed"
	EventFaxFallbackEmail AuditEvent = "fax_fallback_email"

	// Vouchers
	EventVoucherIssued   AuditEvent = "voucher_issued"
	EventVoucherRedeemed AuditEvent = "voucher_redeemed"

	// Guardians
	EventGuardianLinked   AuditEvent = "guardian_linked"
	EventGuardianUnlinked AuditEvent = "guardian_unlinked"
)

// eventCategories maps each audit event to its category. Compliance events
// require tamper-proof storage; anything not listed is operations.
var eventCategories = map[AuditEvent]EventCategory{
	EventApplicationCreated:      CategoryCompliance,
	EventApplicationAutoApproved: CategoryCompliance,
	EventStatusChanged:           CategoryCompliance,
	EventProofApproved:           CategoryCompliance,
	EventProofRejected:           CategoryCompliance,
	EventSigningCompleted:        CategoryCompliance,
	EventSigningDeclined:         CategoryCompliance,
	EventVoucherIssued:           CategoryCompliance,
	EventVoucherRedeemed:         CategoryCompliance,
	EventGuardianLinked:          CategoryCompliance,
	EventGuardianUnlinked:        CategoryCompliance,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store is the audit persistence sink. Postgres writes the transactional
// outbox; the worker drains it to Kafka.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]Event, error)
}
