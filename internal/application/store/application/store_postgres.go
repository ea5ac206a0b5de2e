package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vouchsafe/internal/application/models"
	platformpg "vouchsafe/internal/platform/postgres"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
	txcontext "vouchsafe/pkg/platform/tx"
)

// PostgresStore persists applications in PostgreSQL. When the context carries
// a transaction (pkg/platform/tx) all statements run through it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed application store.
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

const applicationColumns = `
	id, user_id, managing_guardian_id, status, submission_method,
	application_date, income_proof_status, residency_proof_status,
	certification_status, signing_status, signing_submission_id,
	signed_document_url, signing_request_count, household_size,
	annual_income_cents, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID), uuid.UUID(app.UserID), nullUUID(app.ManagingGuardianID),
		string(app.Status), string(app.SubmissionMethod), app.ApplicationDate,
		string(app.IncomeProofStatus), string(app.ResidencyProofStatus),
		string(app.CertificationStatus), string(app.SigningStatus),
		nullString(app.SigningSubmissionID), nullString(app.SignedDocumentURL),
		app.SigningRequestCount, app.HouseholdSize, app.AnnualIncomeCents,
		app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, uuid.UUID(appID))
	return scanApplication(row)
}

func (s *PostgresStore) FindBySigningSubmissionID(ctx context.Context, submissionID string) (*models.Application, error) {
	if submissionID == "" {
		return nil, sentinel.ErrNotFound
	}
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE signing_submission_id = $1`, submissionID)
	return scanApplication(row)
}

func (s *PostgresStore) Update(ctx context.Context, app *models.Application) error {
	query := `
		UPDATE applications SET
			managing_guardian_id = $2, status = $3, submission_method = $4,
			application_date = $5, income_proof_status = $6,
			residency_proof_status = $7, certification_status = $8,
			signing_status = $9, signing_submission_id = $10,
			signed_document_url = $11, signing_request_count = $12,
			household_size = $13, annual_income_cents = $14, updated_at = $15
		WHERE id = $1`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID), nullUUID(app.ManagingGuardianID), string(app.Status),
		string(app.SubmissionMethod), app.ApplicationDate,
		string(app.IncomeProofStatus), string(app.ResidencyProofStatus),
		string(app.CertificationStatus), string(app.SigningStatus),
		nullString(app.SigningSubmissionID), nullString(app.SignedDocumentURL),
		app.SigningRequestCount, app.HouseholdSize, app.AnnualIncomeCents,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute locks the application row FOR UPDATE, runs validate and mutate, and
// writes the result back in the same transaction. A validate error rolls back
// without mutating anything.
func (s *PostgresStore) Execute(ctx context.Context, appID id.ApplicationID,
	validate func(app *models.Application) error,
	mutate func(app *models.Application)) (*models.Application, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txCtx := txcontext.WithTx(ctx, tx)

	row := tx.QueryRowContext(txCtx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, uuid.UUID(appID))
	app, err := scanApplication(row)
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(app); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(app)
	}

	if err := s.Update(txCtx, app); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) LatestByUser(ctx context.Context, userID id.UserID) (*models.Application, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = $1 ORDER BY application_date DESC LIMIT 1`, uuid.UUID(userID))
	return scanApplication(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE user_id = $1 ORDER BY application_date DESC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		app, err := scanApplicationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row *sql.Row) (*models.Application, error) {
	app, err := scanApplicationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return app, err
}

func scanApplicationRow(row rowScanner) (*models.Application, error) {
	var (
		app          models.Application
		appID        uuid.UUID
		userID       uuid.UUID
		guardianID   uuid.NullUUID
		status       string
		method       string
		income       string
		residency    string
		cert         string
		signing      string
		submissionID sql.NullString
		documentURL  sql.NullString
	)
	err := row.Scan(
		&appID, &userID, &guardianID, &status, &method,
		&app.ApplicationDate, &income, &residency,
		&cert, &signing, &submissionID,
		&documentURL, &app.SigningRequestCount, &app.HouseholdSize,
		&app.AnnualIncomeCents, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.ID = id.ApplicationID(appID)
	app.UserID = id.UserID(userID)
	if guardianID.Valid {
		app.ManagingGuardianID = id.UserID(guardianID.UUID)
	}
	app.Status = models.Status(status)
	app.SubmissionMethod = models.SubmissionMethod(method)
	app.IncomeProofStatus = models.ProofStatus(income)
	app.ResidencyProofStatus = models.ProofStatus(residency)
	app.CertificationStatus = models.CertificationStatus(cert)
	app.SigningStatus = models.SigningStatus(signing)
	app.SigningSubmissionID = submissionID.String
	app.SignedDocumentURL = documentURL.String
	return &app, nil
}

func nullUUID(u id.UserID) uuid.NullUUID {
	if u.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(u), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
