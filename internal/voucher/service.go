package voucher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vouchsafe/internal/application/models"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/platform/secrets"
	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/platform/sentinel"
	"vouchsafe/pkg/requestcontext"
)

// DefaultValidity is how long an issued voucher can be redeemed.
const DefaultValidity = 90 * 24 * time.Hour

// amountForHousehold maps household size to the voucher amount. Sizes beyond
// the table get the largest amount.
func amountForHousehold(size int) int64 {
	amounts := []int64{3000, 3000, 5000, 7000, 9000}
	if size < 1 {
		size = 1
	}
	if size > len(amounts) {
		size = len(amounts)
	}
	return amounts[size-1]
}

// Service issues and redeems vouchers.
type Service struct {
	store    Store
	audit    *audit.Publisher
	notifier notify.Dispatcher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService wires the voucher service.
func NewService(store Store, auditor *audit.Publisher, notifier notify.Dispatcher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditor, notifier: notifier, metrics: m, logger: logger}
}

// Issued is returned from Issue. PlainCode is the only copy of the
// redemption code; it is never stored.
type Issued struct {
	Voucher   *Voucher
	PlainCode string
}

// Issue creates a voucher for an approved application. Issuing twice for the
// same application returns the existing voucher with no code, so approval
// re-evaluation stays idempotent.
func (s *Service) Issue(ctx context.Context, app *models.Application) (*Issued, error) {
	if app.Status != models.StatusApproved {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"cannot issue a voucher for a %s application", app.Status)
	}

	if existing, err := s.store.FindByApplication(ctx, app.ID); err == nil {
		return &Issued{Voucher: existing}, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "looking up existing voucher")
	}

	code, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generating voucher code")
	}
	hash, err := secrets.Hash(code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hashing voucher code")
	}

	now := requestcontext.Now(ctx)
	v := &Voucher{
		ID:            id.NewVoucherID(),
		ApplicationID: app.ID,
		UserID:        app.UserID,
		CodeHash:      hash,
		AmountCents:   amountForHousehold(app.HouseholdSize),
		IssuedAt:      now,
		ExpiresAt:     now.Add(DefaultValidity),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, v); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a concurrent issuance; the winner's voucher stands.
			existing, findErr := s.store.FindByApplication(ctx, app.ID)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "resolving voucher conflict")
			}
			return &Issued{Voucher: existing}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating voucher")
	}

	s.metrics.VouchersIssued.Inc()
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventVoucherIssued),
		Metadata: audit.Meta(
			"voucher_id", v.ID.String(),
			"amount_cents", v.AmountCents,
		),
	})
	s.notifier.Notify(ctx, notify.Event{
		Type:          "voucher_issued",
		Channel:       notify.ChannelEmail,
		RecipientID:   app.UserID,
		ApplicationID: app.ID,
		Metadata:      notify.Meta("voucher_id", v.ID.String()),
	})
	return &Issued{Voucher: v, PlainCode: code}, nil
}

// Redeem marks the voucher used after verifying the redemption code. A
// voucher is single-use: redeeming it twice fails with a conflict.
func (s *Service) Redeem(ctx context.Context, voucherID id.VoucherID, code, vendorID string) (*Voucher, error) {
	if vendorID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "vendor ID is required")
	}

	v, err := s.store.FindByID(ctx, voucherID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "voucher not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading voucher")
	}

	now := requestcontext.Now(ctx)
	if v.Redeemed() {
		return nil, dErrors.New(dErrors.CodeConflict, "voucher has already been redeemed")
	}
	if v.Expired(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "voucher has expired")
	}
	if err := secrets.Verify(code, v.CodeHash); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid redemption code")
	}

	if err := s.store.MarkRedeemed(ctx, voucherID, vendorID, now); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "voucher has already been redeemed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marking voucher redeemed")
	}
	v.RedeemedAt = &now
	v.VendorID = vendorID
	v.UpdatedAt = now

	s.metrics.VouchersRedeemed.Inc()
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: v.ApplicationID,
		Action:        string(audit.EventVoucherRedeemed),
		Metadata: audit.Meta(
			"voucher_id", v.ID.String(),
			"vendor_id", vendorID,
		),
	})
	return v, nil
}
