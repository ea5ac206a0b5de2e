// Package guardian tracks which users may act on behalf of a dependent.
// Applications submitted by a guardian record the relationship; the link is
// checked before a guardian may create or manage a dependent's application.
package guardian

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vouchsafe/internal/audit"
	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/platform/sentinel"
	"vouchsafe/pkg/requestcontext"
)

// Relationship describes how the guardian relates to the dependent.
type Relationship string

const (
	RelationshipParent        Relationship = "parent"
	RelationshipLegalGuardian Relationship = "legal_guardian"
	RelationshipCaretaker     Relationship = "caretaker"
)

// Valid reports whether r is a known relationship.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipParent, RelationshipLegalGuardian, RelationshipCaretaker:
		return true
	}
	return false
}

// Link is one guardian-to-dependent relationship.
type Link struct {
	ID           id.GuardianLinkID
	GuardianID   id.UserID
	DependentID  id.UserID
	Relationship Relationship
	CreatedAt    time.Time
}

// Store persists guardian links.
type Store interface {
	Create(ctx context.Context, link *Link) error
	// Find returns the link between guardian and dependent, or
	// sentinel.ErrNotFound.
	Find(ctx context.Context, guardianID, dependentID id.UserID) (*Link, error)
	Delete(ctx context.Context, guardianID, dependentID id.UserID) error
	ListByGuardian(ctx context.Context, guardianID id.UserID) ([]*Link, error)
}

// Service manages guardian links.
type Service struct {
	store  Store
	audit  *audit.Publisher
	logger *slog.Logger
}

// NewService wires the guardian service.
func NewService(store Store, auditor *audit.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditor, logger: logger}
}

// Link records that guardian may manage dependent's applications.
func (s *Service) Link(ctx context.Context, guardianID, dependentID id.UserID, rel Relationship) (*Link, error) {
	if guardianID.IsNil() || dependentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "guardian and dependent IDs are required")
	}
	if guardianID == dependentID {
		return nil, dErrors.New(dErrors.CodeValidation, "a user cannot be their own guardian")
	}
	if !rel.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown relationship %q", rel)
	}

	link := &Link{
		ID:           id.NewGuardianLinkID(),
		GuardianID:   guardianID,
		DependentID:  dependentID,
		Relationship: rel,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, link); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "guardian link already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating guardian link")
	}

	s.audit.Emit(ctx, audit.Event{
		Action: string(audit.EventGuardianLinked),
		Metadata: audit.Meta(
			"guardian_id", guardianID.String(),
			"dependent_id", dependentID.String(),
			"relationship", string(rel),
		),
	})
	return link, nil
}

// Unlink removes the relationship.
func (s *Service) Unlink(ctx context.Context, guardianID, dependentID id.UserID) error {
	if err := s.store.Delete(ctx, guardianID, dependentID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "guardian link not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "deleting guardian link")
	}
	s.audit.Emit(ctx, audit.Event{
		Action: string(audit.EventGuardianUnlinked),
		Metadata: audit.Meta(
			"guardian_id", guardianID.String(),
			"dependent_id", dependentID.String(),
		),
	})
	return nil
}

// CanManage reports whether guardian may act for dependent. A user always
// manages their own applications.
func (s *Service) CanManage(ctx context.Context, guardianID, dependentID id.UserID) (bool, error) {
	if guardianID == dependentID {
		return true, nil
	}
	_, err := s.store.Find(ctx, guardianID, dependentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "looking up guardian link")
	}
	return true, nil
}
