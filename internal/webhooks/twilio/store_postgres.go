package twilio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	platformpg "vouchsafe/internal/platform/postgres"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
	txcontext "vouchsafe/pkg/platform/tx"
)

// PostgresStore persists fax transmissions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed fax store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) conn(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const faxColumns = `
	fax_sid, application_id, recipient_email, recipient_fax, status,
	blob_key, fallback_email_sent, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, fax *FaxTransmission) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO fax_transmissions (`+faxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		fax.FaxSid, uuid.UUID(fax.ApplicationID), fax.RecipientEmail, fax.RecipientFax,
		string(fax.Status), fax.BlobKey, fax.FallbackEmailSent, fax.CreatedAt, fax.UpdatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create fax transmission: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindBySid(ctx context.Context, faxSid string) (*FaxTransmission, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+faxColumns+` FROM fax_transmissions WHERE fax_sid = $1`, faxSid)

	var (
		fax    FaxTransmission
		appID  uuid.UUID
		status string
	)
	err := row.Scan(
		&fax.FaxSid, &appID, &fax.RecipientEmail, &fax.RecipientFax, &status,
		&fax.BlobKey, &fax.FallbackEmailSent, &fax.CreatedAt, &fax.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan fax transmission: %w", err)
	}
	fax.ApplicationID = id.ApplicationID(appID)
	fax.Status = DeliveryStatus(status)
	return &fax, nil
}

func (s *PostgresStore) Update(ctx context.Context, fax *FaxTransmission) error {
	result, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE fax_transmissions SET
			status = $2, fallback_email_sent = $3, updated_at = $4
		WHERE fax_sid = $1`,
		fax.FaxSid, string(fax.Status), fax.FallbackEmailSent, fax.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update fax transmission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fax transmission: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
