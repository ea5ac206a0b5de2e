// Package voucher issues and redeems program vouchers. A voucher is created
// when an application is approved; its code is shown to the constituent once
// and only a bcrypt hash is stored. Redemption is single-use.
package voucher

import (
	"time"

	id "vouchsafe/pkg/domain"
)

// Voucher is one issued benefit voucher.
type Voucher struct {
	ID            id.VoucherID
	ApplicationID id.ApplicationID
	UserID        id.UserID

	// CodeHash is the bcrypt hash of the redemption code. The plain code is
	// returned exactly once at issuance and never persisted.
	CodeHash    string
	AmountCents int64

	IssuedAt   time.Time
	ExpiresAt  time.Time
	RedeemedAt *time.Time
	// VendorID identifies the participating vendor that redeemed the voucher.
	VendorID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Redeemed reports whether the voucher has been used.
func (v *Voucher) Redeemed() bool {
	return v.RedeemedAt != nil
}

// Expired reports whether the voucher can no longer be redeemed.
func (v *Voucher) Expired(now time.Time) bool {
	return !v.ExpiresAt.IsZero() && now.After(v.ExpiresAt)
}
