package voucher

import (
	"context"
	"time"

	id "vouchsafe/pkg/domain"
)

// Store persists vouchers. Implementations return sentinel errors; the
// service translates them into coded domain errors.
type Store interface {
	Create(ctx context.Context, v *Voucher) error
	FindByID(ctx context.Context, voucherID id.VoucherID) (*Voucher, error)
	// FindByApplication returns the voucher issued for an application, or
	// sentinel.ErrNotFound. At most one voucher exists per application.
	FindByApplication(ctx context.Context, appID id.ApplicationID) (*Voucher, error)
	Update(ctx context.Context, v *Voucher) error
	// MarkRedeemed atomically stamps the voucher redeemed. Losing a race to
	// a concurrent redemption returns sentinel.ErrAlreadyUsed.
	MarkRedeemed(ctx context.Context, voucherID id.VoucherID, vendorID string, at time.Time) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*Voucher, error)
}
