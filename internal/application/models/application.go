package models

import (
	"time"

	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
)

// Application is the aggregate root for one voucher application. Mutations go
// through the application service so every status change is guarded, audited,
// and re-evaluated for auto-approval.
type Application struct {
	ID     id.ApplicationID
	UserID id.UserID
	// ManagingGuardianID is set when a guardian submitted on behalf of a
	// dependent. Nil UUID means the constituent applied for themselves.
	ManagingGuardianID id.UserID

	Status           Status
	SubmissionMethod SubmissionMethod
	ApplicationDate  time.Time

	IncomeProofStatus    ProofStatus
	ResidencyProofStatus ProofStatus

	CertificationStatus CertificationStatus
	SigningStatus       SigningStatus
	// SigningSubmissionID and SignedDocumentURL are the e-signature provider's
	// correlation keys. SignedDocumentURL doubles as the idempotency key for
	// webhook-driven attachment: the same URL is never re-downloaded.
	SigningSubmissionID string
	SignedDocumentURL   string
	// SigningRequestCount is incremented under a row lock; concurrent
	// certification requests must not lose updates.
	SigningRequestCount int

	HouseholdSize     int
	AnnualIncomeCents int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewApplication carries the fields a caller supplies at intake.
type NewApplication struct {
	UserID             id.UserID
	ManagingGuardianID id.UserID
	SubmissionMethod   SubmissionMethod
	ApplicationDate    time.Time
	HouseholdSize      int
	AnnualIncomeCents  int64
}

// Validate checks intake fields before the waiting-period guard runs.
func (n NewApplication) Validate() error {
	if n.UserID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "applicant user ID is required")
	}
	if n.SubmissionMethod == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "submission method is required")
	}
	if n.HouseholdSize < 1 {
		return dErrors.New(dErrors.CodeValidation, "household size must be at least 1")
	}
	if n.AnnualIncomeCents < 0 {
		return dErrors.New(dErrors.CodeValidation, "annual income cannot be negative")
	}
	return nil
}

// ProofStatusFor returns the review state of the given proof type.
func (a *Application) ProofStatusFor(t ProofType) ProofStatus {
	if t == ProofTypeResidency {
		return a.ResidencyProofStatus
	}
	return a.IncomeProofStatus
}

// SetProofStatus writes the review state of the given proof type.
func (a *Application) SetProofStatus(t ProofType, s ProofStatus) {
	if t == ProofTypeResidency {
		a.ResidencyProofStatus = s
		return
	}
	a.IncomeProofStatus = s
}

// ReadyForApproval reports whether all three proof dimensions are approved.
// Invariant: Status == approved implies ReadyForApproval.
func (a *Application) ReadyForApproval() bool {
	return a.IncomeProofStatus == ProofStatusApproved &&
		a.ResidencyProofStatus == ProofStatusApproved &&
		a.CertificationStatus == CertificationApproved
}

// SignedDocumentProcessed reports whether a completed-form webhook for the
// given document URL has already been applied. Used as the replay guard.
func (a *Application) SignedDocumentProcessed(documentURL string) bool {
	return a.SigningStatus == SigningSigned &&
		a.SignedDocumentURL != "" &&
		a.SignedDocumentURL == documentURL
}

// GuardianManaged reports whether a guardian manages this application.
func (a *Application) GuardianManaged() bool {
	return !a.ManagingGuardianID.IsNil()
}
