package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouchsafe/internal/application/models"
	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/platform/sentinel"
)

func newTestApplication(userID id.UserID, applicationDate time.Time) *models.Application {
	now := time.Now()
	return &models.Application{
		ID:                   id.NewApplicationID(),
		UserID:               userID,
		Status:               models.StatusDraft,
		SubmissionMethod:     models.SubmissionWeb,
		ApplicationDate:      applicationDate,
		IncomeProofStatus:    models.ProofStatusNotReviewed,
		ResidencyProofStatus: models.ProofStatusNotReviewed,
		CertificationStatus:  models.CertificationNotRequested,
		SigningStatus:        models.SigningNotSent,
		HouseholdSize:        2,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	app := newTestApplication(id.NewUserID(), time.Now())

	require.NoError(t, store.Create(ctx, app))

	found, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, found.ID)
	assert.Equal(t, models.StatusDraft, found.Status)

	assert.ErrorIs(t, store.Create(ctx, app), sentinel.ErrConflict)

	_, err = store.FindByID(ctx, id.NewApplicationID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_FindBySigningSubmissionID(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	app := newTestApplication(id.NewUserID(), time.Now())
	app.SigningSubmissionID = "sub-123"
	require.NoError(t, store.Create(ctx, app))

	found, err := store.FindBySigningSubmissionID(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, app.ID, found.ID)

	_, err = store.FindBySigningSubmissionID(ctx, "sub-999")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.FindBySigningSubmissionID(ctx, "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_Execute(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	app := newTestApplication(id.NewUserID(), time.Now())
	require.NoError(t, store.Create(ctx, app))

	t.Run("mutation is persisted", func(t *testing.T) {
		updated, err := store.Execute(ctx, app.ID, nil, func(a *models.Application) {
			a.SigningRequestCount++
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.SigningRequestCount)

		found, err := store.FindByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, found.SigningRequestCount)
	})

	t.Run("validate error aborts without mutating", func(t *testing.T) {
		_, err := store.Execute(ctx, app.ID,
			func(a *models.Application) error {
				return dErrors.New(dErrors.CodeInvariantViolation, "nope")
			},
			func(a *models.Application) {
				a.SigningRequestCount = 99
			})
		require.Error(t, err)

		found, err := store.FindByID(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, found.SigningRequestCount)
	})

	t.Run("unknown application", func(t *testing.T) {
		_, err := store.Execute(ctx, id.NewApplicationID(), nil, nil)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestMemoryStore_LatestByUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	userID := id.NewUserID()

	older := newTestApplication(userID, time.Now().AddDate(-4, 0, 0))
	newer := newTestApplication(userID, time.Now().AddDate(-1, 0, 0))
	other := newTestApplication(id.NewUserID(), time.Now())
	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))
	require.NoError(t, store.Create(ctx, other))

	latest, err := store.LatestByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	_, err = store.LatestByUser(ctx, id.NewUserID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	app := newTestApplication(id.NewUserID(), time.Now())
	require.NoError(t, store.Create(ctx, app))

	found, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	found.Status = models.StatusApproved

	again, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, again.Status, "mutating a returned copy must not affect the store")
}
