package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	applicationstore "vouchsafe/internal/application/store/application"
	reviewstore "vouchsafe/internal/application/store/review"
	statuschangestore "vouchsafe/internal/application/store/statuschange"
	appstore "vouchsafe/internal/application/store"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/guardian"
	"vouchsafe/internal/storage"
	"vouchsafe/internal/voucher"
	"vouchsafe/internal/webhooks/twilio"
)

// Store constructors fall back to memory implementations when no database is
// configured, for local development only.

func newApplicationStore(db *sql.DB) appstore.ApplicationStore {
	if db == nil {
		return applicationstore.NewMemory()
	}
	return applicationstore.NewPostgres(db)
}

func newReviewStore(db *sql.DB) appstore.ReviewStore {
	if db == nil {
		return reviewstore.NewMemory()
	}
	return reviewstore.NewPostgres(db)
}

func newStatusChangeStore(db *sql.DB) appstore.StatusChangeStore {
	if db == nil {
		return statuschangestore.NewMemory()
	}
	return statuschangestore.NewPostgres(db)
}

func newVoucherStore(db *sql.DB) voucher.Store {
	if db == nil {
		return voucher.NewMemory()
	}
	return voucher.NewPostgres(db)
}

func newFaxStore(db *sql.DB) twilio.Store {
	if db == nil {
		return twilio.NewMemory()
	}
	return twilio.NewPostgres(db)
}

func newGuardianStore(db *sql.DB) guardian.Store {
	if db == nil {
		return guardian.NewMemory()
	}
	return guardian.NewPostgres(db)
}

func newAuditStore(db *sql.DB) audit.Store {
	if db == nil {
		return audit.NewMemoryStore()
	}
	return audit.NewPostgresStore(db)
}

func newBlobStore(ctx context.Context, databaseURL string) (storage.BlobStore, error) {
	if databaseURL == "" {
		return storage.NewMemory(), nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open blob store pool: %w", err)
	}
	return storage.NewPostgres(pool), nil
}
