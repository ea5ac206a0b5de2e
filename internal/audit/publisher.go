package audit

import (
	"context"
	"log/slog"

	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/requestcontext"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily. Emit failures
// are logged, never propagated: the workflow's correctness must not depend on
// audit delivery.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

// NewPublisher creates an audit publisher over the given store.
func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Emit records an audit event. Timestamp and RequestID default from context.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID.IsNil() {
		event.ActorID = requestcontext.ActorID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to append audit event",
			"action", event.Action,
			"application_id", event.ApplicationID.String(),
			"error", err,
		)
	}
}

// List returns the audit trail for one application.
func (p *Publisher) List(ctx context.Context, appID id.ApplicationID) ([]Event, error) {
	return p.store.ListByApplication(ctx, appID)
}
