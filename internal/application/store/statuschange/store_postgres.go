package statuschange

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"vouchsafe/internal/application/models"
	id "vouchsafe/pkg/domain"
	txcontext "vouchsafe/pkg/platform/tx"
)

// PostgresStore is the append-only status change trail in PostgreSQL.
// Rows are never updated or deleted.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed status change store.
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

func (s *PostgresStore) Append(ctx context.Context, change *models.StatusChange) error {
	metadata, err := json.Marshal(change.Metadata)
	if err != nil {
		return fmt.Errorf("marshal status change metadata: %w", err)
	}
	var actor uuid.NullUUID
	if !change.ActorID.IsNil() {
		actor = uuid.NullUUID{UUID: uuid.UUID(change.ActorID), Valid: true}
	}
	err = s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO application_status_changes
			(application_id, from_status, to_status, changed_at, actor_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		uuid.UUID(change.ApplicationID), string(change.FromStatus), string(change.ToStatus),
		change.ChangedAt, actor, metadata,
	).Scan(&change.ID)
	if err != nil {
		return fmt.Errorf("append status change: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.StatusChange, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, application_id, from_status, to_status, changed_at, actor_id, metadata
		FROM application_status_changes
		WHERE application_id = $1
		ORDER BY id`, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list status changes: %w", err)
	}
	defer rows.Close()

	var out []*models.StatusChange
	for rows.Next() {
		var (
			c        models.StatusChange
			app      uuid.UUID
			from, to string
			actor    uuid.NullUUID
			metadata []byte
		)
		if err := rows.Scan(&c.ID, &app, &from, &to, &c.ChangedAt, &actor, &metadata); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		c.ApplicationID = id.ApplicationID(app)
		c.FromStatus = models.Status(from)
		c.ToStatus = models.Status(to)
		if actor.Valid {
			c.ActorID = id.UserID(actor.UUID)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal status change metadata: %w", err)
			}
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
