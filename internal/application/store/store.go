// Package store defines the persistence interfaces for applications, proof
// reviews, and the status-change audit trail. Implementations live in
// subpackages: memory stores for unit tests, PostgreSQL stores for production.
package store

import (
	"context"

	"vouchsafe/internal/application/models"
	id "vouchsafe/pkg/domain"
)

// ApplicationStore persists voucher applications.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded domain errors.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	// FindBySigningSubmissionID resolves the provider correlation key carried
	// by e-signature webhooks.
	FindBySigningSubmissionID(ctx context.Context, submissionID string) (*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	// Execute runs validate and mutate atomically under a per-application
	// lock (row lock in PostgreSQL, store mutex in memory). A validate error
	// aborts without mutating. The returned application reflects the mutation.
	Execute(ctx context.Context, appID id.ApplicationID,
		validate func(app *models.Application) error,
		mutate func(app *models.Application)) (*models.Application, error)
	// LatestByUser returns the user's most recent application by application
	// date, for the waiting-period guard.
	LatestByUser(ctx context.Context, userID id.UserID) (*models.Application, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error)
}

// ReviewStore persists proof review decisions.
type ReviewStore interface {
	// Save inserts the review, or updates it when a row with the same ID
	// already exists.
	Save(ctx context.Context, review *models.ProofReview) error
	// FindCurrentRejection returns the single current rejected review for the
	// proof type, or sentinel.ErrNotFound.
	FindCurrentRejection(ctx context.Context, appID id.ApplicationID, t models.ProofType) (*models.ProofReview, error)
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.ProofReview, error)
}

// StatusChangeStore is the append-only status audit trail.
type StatusChangeStore interface {
	Append(ctx context.Context, change *models.StatusChange) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.StatusChange, error)
}
