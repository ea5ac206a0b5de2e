package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vouchsafe/internal/application/models"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
	txcontext "vouchsafe/pkg/platform/tx"
)

// PostgresStore persists proof reviews in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed review store.
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

const reviewColumns = `
	id, application_id, proof_type, decision, rejection_reason,
	rejection_reason_code, reviewer_id, submission_method, reviewed_at,
	created_at, updated_at`

// Save upserts by primary key; re-rejecting the same proof type reuses the
// existing row's ID, so the update path carries the new reason.
func (s *PostgresStore) Save(ctx context.Context, review *models.ProofReview) error {
	query := `
		INSERT INTO proof_reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			decision = EXCLUDED.decision,
			rejection_reason = EXCLUDED.rejection_reason,
			rejection_reason_code = EXCLUDED.rejection_reason_code,
			reviewer_id = EXCLUDED.reviewer_id,
			submission_method = EXCLUDED.submission_method,
			reviewed_at = EXCLUDED.reviewed_at,
			updated_at = EXCLUDED.updated_at`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(review.ID), uuid.UUID(review.ApplicationID), string(review.ProofType),
		string(review.Decision), review.RejectionReason, string(review.RejectionReasonCode),
		uuid.UUID(review.ReviewerID), string(review.SubmissionMethod), review.ReviewedAt,
		review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save proof review: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindCurrentRejection(ctx context.Context, appID id.ApplicationID, t models.ProofType) (*models.ProofReview, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM proof_reviews
		 WHERE application_id = $1 AND proof_type = $2 AND decision = $3`,
		uuid.UUID(appID), string(t), string(models.ReviewRejected))
	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return review, nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.ProofReview, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM proof_reviews
		 WHERE application_id = $1 ORDER BY reviewed_at`, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list proof reviews: %w", err)
	}
	defer rows.Close()

	var out []*models.ProofReview
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, review)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*models.ProofReview, error) {
	var (
		review     models.ProofReview
		reviewID   uuid.UUID
		appID      uuid.UUID
		proofType  string
		decision   string
		reasonCode string
		reviewerID uuid.UUID
		method     string
	)
	err := row.Scan(
		&reviewID, &appID, &proofType, &decision, &review.RejectionReason,
		&reasonCode, &reviewerID, &method, &review.ReviewedAt,
		&review.CreatedAt, &review.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan proof review: %w", err)
	}
	review.ID = id.ProofReviewID(reviewID)
	review.ApplicationID = id.ApplicationID(appID)
	review.ProofType = models.ProofType(proofType)
	review.Decision = models.ReviewDecision(decision)
	review.RejectionReasonCode = models.RejectionReasonCode(reasonCode)
	review.ReviewerID = id.UserID(reviewerID)
	review.SubmissionMethod = models.SubmissionMethod(method)
	return &review, nil
}
