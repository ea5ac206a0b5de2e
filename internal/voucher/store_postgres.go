package voucher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	platformpg "vouchsafe/internal/platform/postgres"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
	txcontext "vouchsafe/pkg/platform/tx"
)

// PostgresStore persists vouchers in PostgreSQL. When the context carries a
// transaction (pkg/platform/tx) all statements run through it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed voucher store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const voucherColumns = `
	id, application_id, user_id, code_hash, amount_cents,
	issued_at, expires_at, redeemed_at, vendor_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, v *Voucher) error {
	query := `
		INSERT INTO vouchers (` + voucherColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(v.ID), uuid.UUID(v.ApplicationID), uuid.UUID(v.UserID),
		v.CodeHash, v.AmountCents,
		v.IssuedAt, v.ExpiresAt, nullTime(v.RedeemedAt), nullStr(v.VendorID),
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create voucher: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, voucherID id.VoucherID) (*Voucher, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, uuid.UUID(voucherID))
	return scanVoucher(row)
}

func (s *PostgresStore) FindByApplication(ctx context.Context, appID id.ApplicationID) (*Voucher, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE application_id = $1`, uuid.UUID(appID))
	return scanVoucher(row)
}

func (s *PostgresStore) Update(ctx context.Context, v *Voucher) error {
	result, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE vouchers SET
			code_hash = $2, amount_cents = $3, expires_at = $4,
			redeemed_at = $5, vendor_id = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(v.ID), v.CodeHash, v.AmountCents, v.ExpiresAt,
		nullTime(v.RedeemedAt), nullStr(v.VendorID), v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update voucher: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update voucher: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// MarkRedeemed stamps the voucher in one conditional statement so concurrent
// redemptions cannot both succeed.
func (s *PostgresStore) MarkRedeemed(ctx context.Context, voucherID id.VoucherID, vendorID string, at time.Time) error {
	result, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE vouchers SET redeemed_at = $2, vendor_id = $3, updated_at = $2
		WHERE id = $1 AND redeemed_at IS NULL`,
		uuid.UUID(voucherID), at, vendorID,
	)
	if err != nil {
		return fmt.Errorf("mark voucher redeemed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark voucher redeemed: %w", err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, voucherID); err != nil {
		return err
	}
	return sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*Voucher, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE user_id = $1 ORDER BY issued_at`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var out []*Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (*Voucher, error) {
	var (
		v          Voucher
		vID        uuid.UUID
		appID      uuid.UUID
		userID     uuid.UUID
		redeemedAt sql.NullTime
		vendorID   sql.NullString
	)
	err := row.Scan(
		&vID, &appID, &userID, &v.CodeHash, &v.AmountCents,
		&v.IssuedAt, &v.ExpiresAt, &redeemedAt, &vendorID,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan voucher: %w", err)
	}
	v.ID = id.VoucherID(vID)
	v.ApplicationID = id.ApplicationID(appID)
	v.UserID = id.UserID(userID)
	if redeemedAt.Valid {
		t := redeemedAt.Time
		v.RedeemedAt = &t
	}
	v.VendorID = vendorID.String
	return &v, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
