package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vouchsafe/pkg/platform/sentinel"
)

// PostgresStore keeps blobs in a bytea column. Document volumes for this
// program are small enough that object storage is not warranted; pgx handles
// the byte payloads without the database/sql round trip.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a pgx-backed blob store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Put(ctx context.Context, blob Blob) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO proof_blobs (key, content_type, data, uploaded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			data = EXCLUDED.data,
			uploaded_at = EXCLUDED.uploaded_at`,
		blob.Key, blob.ContentType, blob.Data, blob.UploadedAt)
	if err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Blob, error) {
	var blob Blob
	err := s.pool.QueryRow(ctx, `
		SELECT key, content_type, data, uploaded_at FROM proof_blobs WHERE key = $1`, key).
		Scan(&blob.Key, &blob.ContentType, &blob.Data, &blob.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return &blob, nil
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM proof_blobs WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check blob: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Purge(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM proof_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("purge blob: %w", err)
	}
	return nil
}
