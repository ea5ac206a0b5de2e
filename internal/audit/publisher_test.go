package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/requestcontext"
)

func TestPublisher_EmitDefaultsFromContext(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store, slog.Default())

	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	actor := id.NewUserID()
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithActorID(ctx, actor)

	appID := id.NewApplicationID()
	pub.Emit(ctx, Event{
		ApplicationID: appID,
		Action:        string(EventProofApproved),
	})

	events, err := pub.List(ctx, appID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
	assert.Equal(t, actor, events[0].ActorID)
}

func TestPublisher_ExplicitFieldsWin(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store, slog.Default())

	explicit := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), explicit.Add(time.Hour))

	appID := id.NewApplicationID()
	pub.Emit(ctx, Event{
		ApplicationID: appID,
		Action:        string(EventSigningCompleted),
		Timestamp:     explicit,
		RequestID:     "explicit-req",
	})

	events := store.All()
	require.Len(t, events, 1)
	assert.Equal(t, explicit, events[0].Timestamp)
	assert.Equal(t, "explicit-req", events[0].RequestID)
}

func TestAuditEvent_Category(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventVoucherIssued.Category())
	assert.Equal(t, CategoryCompliance, EventStatusChanged.Category())
	assert.Equal(t, CategoryOperations, EventAttachmentFailed.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("unknown_action").Category())
}
