package models

// Status is the application lifecycle state. Transition legality is encoded
// in the transitions table and checked through CanTransitionTo, never through
// scattered conditionals at call sites.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusInProgress        Status = "in_progress"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusNeedsInformation  Status = "needs_information"
	StatusReminderSent      Status = "reminder_sent"
	StatusAwaitingDocuments Status = "awaiting_documents"
	StatusArchived          Status = "archived"
)

// statusTransitions enumerates every legal application status transition.
// Rejected applications are not revived in place; reapplication creates a new
// application once the waiting period has elapsed.
var statusTransitions = map[Status][]Status{
	StatusDraft:      {StatusInProgress, StatusArchived},
	StatusInProgress: {StatusApproved, StatusRejected, StatusNeedsInformation, StatusReminderSent, StatusAwaitingDocuments, StatusArchived},
	StatusNeedsInformation: {
		StatusInProgress, StatusReminderSent, StatusAwaitingDocuments, StatusApproved, StatusRejected, StatusArchived,
	},
	StatusReminderSent: {
		StatusInProgress, StatusNeedsInformation, StatusAwaitingDocuments, StatusApproved, StatusRejected, StatusArchived,
	},
	StatusAwaitingDocuments: {
		StatusInProgress, StatusNeedsInformation, StatusReminderSent, StatusApproved, StatusRejected, StatusArchived,
	},
	StatusApproved: {StatusArchived},
	StatusRejected: {StatusArchived},
	StatusArchived: nil,
}

// Valid reports whether s is a known application status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is legal.
// A no-op transition (s == target) is never legal; callers guard idempotent
// paths before asking.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range statusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// ProofStatus is the per-proof-type review state (income, residency).
type ProofStatus string

const (
	ProofStatusNotReviewed ProofStatus = "not_reviewed"
	ProofStatusApproved    ProofStatus = "approved"
	ProofStatusRejected    ProofStatus = "rejected"
)

var proofTransitions = map[ProofStatus][]ProofStatus{
	ProofStatusNotReviewed: {ProofStatusApproved, ProofStatusRejected},
	// Constituent resubmission resets a rejection; a re-review after
	// resubmission may approve directly.
	ProofStatusRejected: {ProofStatusNotReviewed, ProofStatusApproved},
	ProofStatusApproved: nil,
}

func (s ProofStatus) Valid() bool {
	_, ok := proofTransitions[s]
	return ok
}

func (s ProofStatus) CanTransitionTo(target ProofStatus) bool {
	for _, next := range proofTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// CertificationStatus tracks the medical certification itself, independent of
// the e-signature workflow that delivers it.
type CertificationStatus string

const (
	CertificationNotRequested CertificationStatus = "not_requested"
	CertificationRequested    CertificationStatus = "requested"
	CertificationReceived     CertificationStatus = "received"
	CertificationApproved     CertificationStatus = "approved"
	CertificationRejected     CertificationStatus = "rejected"
)

var certificationTransitions = map[CertificationStatus][]CertificationStatus{
	// A certification can arrive unsolicited by fax or mail, so received is
	// reachable without a request.
	CertificationNotRequested: {CertificationRequested, CertificationReceived},
	CertificationRequested:    {CertificationReceived, CertificationApproved, CertificationRejected},
	CertificationReceived:     {CertificationApproved, CertificationRejected},
	// Rejection permits resubmission.
	CertificationRejected: {CertificationReceived},
	CertificationApproved: nil,
}

func (s CertificationStatus) Valid() bool {
	_, ok := certificationTransitions[s]
	return ok
}

func (s CertificationStatus) CanTransitionTo(target CertificationStatus) bool {
	for _, next := range certificationTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// SigningStatus is the e-signature provider lifecycle for the certification
// form. It correlates with, but never drives, CertificationStatus directly.
type SigningStatus string

const (
	SigningNotSent  SigningStatus = "not_sent"
	SigningSent     SigningStatus = "sent"
	SigningOpened   SigningStatus = "opened"
	SigningSigned   SigningStatus = "signed"
	SigningDeclined SigningStatus = "declined"
)

var signingTransitions = map[SigningStatus][]SigningStatus{
	SigningNotSent: {SigningSent},
	SigningSent:    {SigningOpened, SigningSigned, SigningDeclined},
	SigningOpened:  {SigningSigned, SigningDeclined},
	// A declined request can be re-sent to the provider.
	SigningDeclined: {SigningSent},
	SigningSigned:   nil,
}

func (s SigningStatus) Valid() bool {
	_, ok := signingTransitions[s]
	return ok
}

func (s SigningStatus) CanTransitionTo(target SigningStatus) bool {
	for _, next := range signingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ProofType enumerates the applicant-submitted proof dimensions. The medical
// certification is tracked separately because it is provider-signed.
type ProofType string

const (
	ProofTypeIncome    ProofType = "income"
	ProofTypeResidency ProofType = "residency"
)

func (t ProofType) Valid() bool {
	return t == ProofTypeIncome || t == ProofTypeResidency
}

// SubmissionMethod records the channel an application or proof arrived through.
type SubmissionMethod string

const (
	SubmissionWeb   SubmissionMethod = "web"
	SubmissionPaper SubmissionMethod = "paper"
	SubmissionEmail SubmissionMethod = "email"
	SubmissionFax   SubmissionMethod = "fax"
	SubmissionESign SubmissionMethod = "esign"
)
