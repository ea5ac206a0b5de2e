package models

import (
	"time"

	id "vouchsafe/pkg/domain"
)

// ReviewDecision is the outcome of one admin proof review.
type ReviewDecision string

const (
	ReviewApproved ReviewDecision = "approved"
	ReviewRejected ReviewDecision = "rejected"
)

// RejectionReasonCode is the structured reason attached to a rejection.
type RejectionReasonCode string

const (
	RejectionAddressMismatch RejectionReasonCode = "address_mismatch"
	RejectionExpired         RejectionReasonCode = "expired"
	RejectionIllegible       RejectionReasonCode = "illegible"
	RejectionIncomeExceeded  RejectionReasonCode = "income_exceeds_threshold"
	RejectionWrongDocument   RejectionReasonCode = "wrong_document"
	RejectionOther           RejectionReasonCode = "other"
)

// ProofReview records one review decision for one proof type. An application
// keeps a single current rejection per proof type: rejecting the same type
// again updates the existing rejected row instead of inserting a second one.
type ProofReview struct {
	ID            id.ProofReviewID
	ApplicationID id.ApplicationID
	ProofType     ProofType
	Decision      ReviewDecision

	RejectionReason     string
	RejectionReasonCode RejectionReasonCode

	ReviewerID       id.UserID
	SubmissionMethod SubmissionMethod
	ReviewedAt       time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
