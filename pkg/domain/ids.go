// Package domain defines typed identifiers shared across the voucher program
// services. Wrapping uuid.UUID in distinct types keeps an ApplicationID from
// being passed where a UserID is expected.
package domain

import "github.com/google/uuid"

// UserID identifies a constituent, guardian, or admin user.
type UserID uuid.UUID

// ApplicationID identifies a voucher application.
type ApplicationID uuid.UUID

// ProofReviewID identifies a single proof review decision.
type ProofReviewID uuid.UUID

// VoucherID identifies an issued voucher.
type VoucherID uuid.UUID

// GuardianLinkID identifies a guardian-dependent relationship.
type GuardianLinkID uuid.UUID

// NewUserID returns a random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewApplicationID returns a random ApplicationID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewProofReviewID returns a random ProofReviewID.
func NewProofReviewID() ProofReviewID { return ProofReviewID(uuid.New()) }

// NewVoucherID returns a random VoucherID.
func NewVoucherID() VoucherID { return VoucherID(uuid.New()) }

// NewGuardianLinkID returns a random GuardianLinkID.
func NewGuardianLinkID() GuardianLinkID { return GuardianLinkID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ApplicationID) String() string  { return uuid.UUID(id).String() }
func (id ProofReviewID) String() string  { return uuid.UUID(id).String() }
func (id VoucherID) String() string      { return uuid.UUID(id).String() }
func (id GuardianLinkID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ProofReviewID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id VoucherID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id GuardianLinkID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses a UserID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseApplicationID parses an ApplicationID from its string form.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}

// ParseVoucherID parses a VoucherID from its string form.
func ParseVoucherID(s string) (VoucherID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return VoucherID{}, err
	}
	return VoucherID(u), nil
}
