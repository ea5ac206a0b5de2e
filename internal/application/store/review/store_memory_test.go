package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouchsafe/internal/application/models"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
)

func TestMemoryStore_SaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	appID := id.NewApplicationID()

	review := &models.ProofReview{
		ID:                  id.NewProofReviewID(),
		ApplicationID:       appID,
		ProofType:           models.ProofTypeIncome,
		Decision:            models.ReviewRejected,
		RejectionReason:     "document expired",
		RejectionReasonCode: models.RejectionExpired,
		ReviewedAt:          time.Now(),
	}
	require.NoError(t, store.Save(ctx, review))

	review.RejectionReason = "address does not match"
	review.RejectionReasonCode = models.RejectionAddressMismatch
	require.NoError(t, store.Save(ctx, review))

	all, err := store.ListByApplication(ctx, appID)
	require.NoError(t, err)
	require.Len(t, all, 1, "saving the same ID twice must not duplicate")
	assert.Equal(t, models.RejectionAddressMismatch, all[0].RejectionReasonCode)
}

func TestMemoryStore_FindCurrentRejection(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	appID := id.NewApplicationID()

	_, err := store.FindCurrentRejection(ctx, appID, models.ProofTypeIncome)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	approved := &models.ProofReview{
		ID:            id.NewProofReviewID(),
		ApplicationID: appID,
		ProofType:     models.ProofTypeIncome,
		Decision:      models.ReviewApproved,
		ReviewedAt:    time.Now(),
	}
	rejected := &models.ProofReview{
		ID:            id.NewProofReviewID(),
		ApplicationID: appID,
		ProofType:     models.ProofTypeResidency,
		Decision:      models.ReviewRejected,
		ReviewedAt:    time.Now(),
	}
	require.NoError(t, store.Save(ctx, approved))
	require.NoError(t, store.Save(ctx, rejected))

	_, err = store.FindCurrentRejection(ctx, appID, models.ProofTypeIncome)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "approved reviews are not rejections")

	found, err := store.FindCurrentRejection(ctx, appID, models.ProofTypeResidency)
	require.NoError(t, err)
	assert.Equal(t, rejected.ID, found.ID)
}
