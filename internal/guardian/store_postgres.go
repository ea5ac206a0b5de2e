package guardian

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

// PostgresStore persists guardian links in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed guardian link store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) conn(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, link *Link) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO guardian_links (id, guardian_id, dependent_id, relationship, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(link.ID), uuid.UUID(link.GuardianID), uuid.UUID(link.DependentID),
		string(link.Relationship), link.CreatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create guardian link: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, guardianID, dependentID id.UserID) (*Link, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, guardian_id, dependent_id, relationship, created_at
		FROM guardian_links WHERE guardian_id = $1 AND dependent_id = $2`,
		uuid.UUID(guardianID), uuid.UUID(dependentID))
	return scanLink(row)
}

func (s *PostgresStore) Delete(ctx context.Context, guardianID, dependentID id.UserID) error {
	result, err := s.conn(ctx).ExecContext(ctx, `
		DELETE FROM guardian_links WHERE guardian_id = $1 AND dependent_id = $2`,
		uuid.UUID(guardianID), uuid.UUID(dependentID))
	if err != nil {
		return fmt.Errorf("delete guardian link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete guardian link: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByGuardian(ctx context.Context, guardianID id.UserID) ([]*Link, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, guardian_id, dependent_id, relationship, created_at
		FROM guardian_links WHERE guardian_id = $1 ORDER BY created_at`,
		uuid.UUID(guardianID))
	if err != nil {
		return nil, fmt.Errorf("list guardian links: %w", err)
	}
	defer rows.Close()

	var out []*Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

func scanLink(row interface{ Scan(dest ...any) error }) (*Link, error) {
	var (
		link        Link
		linkID      uuid.UUID
		guardianID  uuid.UUID
		dependentID uuid.UUID
		rel         string
	)
	err := row.Scan(&linkID, &guardianID, &dependentID, &rel, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan guardian link: %w", err)
	}
	link.ID = id.GuardianLinkID(linkID)
	link.GuardianID = id.UserID(guardianID)
	link.DependentID = id.UserID(dependentID)
	link.Relationship = Relationship(rel)
	return &link, nil
}
