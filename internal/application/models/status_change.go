package models

import (
	"time"

	id "vouchsafe/pkg/domain"
)

// StatusChange is one immutable row in the application's status audit trail.
// Rows are appended by the service post-commit hook on every status mutation
// and are never updated or deleted.
type StatusChange struct {
	ID            int64
	ApplicationID id.ApplicationID
	FromStatus    Status
	ToStatus      Status
	ChangedAt     time.Time
	// ActorID is the admin or constituent who triggered the change. Nil UUID
	// for system-driven transitions (webhooks, auto-approval).
	ActorID  id.UserID
	Metadata map[string]any
}
