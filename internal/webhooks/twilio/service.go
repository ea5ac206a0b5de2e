package twilio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/storage"
	"vouchsafe/internal/webhooks/dedup"
	"vouchsafe/pkg/email"
	"vouchsafe/pkg/platform/sentinel"
	"vouchsafe/pkg/requestcontext"
)

var tracer = otel.Tracer("vouchsafe/webhooks/twilio")

// Service applies fax status callbacks.
type Service struct {
	faxes    Store
	blobs    storage.BlobStore
	ledger   dedup.Ledger
	audit    *audit.Publisher
	notifier notify.Dispatcher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService wires the fax callback service.
func NewService(
	faxes Store,
	blobs storage.BlobStore,
	ledger dedup.Ledger,
	auditor *audit.Publisher,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		faxes:    faxes,
		blobs:    blobs,
		ledger:   ledger,
		audit:    auditor,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Callback is one provider status delivery.
type Callback struct {
	FaxSid    string
	Status    string
	ErrorCode string
}

// RecordStatus maps and applies one callback. Unknown SIDs and unknown
// vocabulary are logged and acknowledged; callbacks for an already-terminal
// transmission are no-ops.
func (s *Service) RecordStatus(ctx context.Context, cb Callback) error {
	ctx, span := tracer.Start(ctx, "twilio.RecordStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("fax_sid", cb.FaxSid),
		attribute.String("provider_status", cb.Status),
	)

	status, known := MapProviderStatus(cb.Status)
	if !known {
		s.metrics.WebhookEvents.WithLabelValues("twilio", "ignored").Inc()
		s.logger.WarnContext(ctx, "unknown fax status vocabulary",
			"fax_sid", cb.FaxSid, "status", cb.Status)
		return nil
	}

	deliveryKey := fmt.Sprintf("twilio:%s:%s", cb.FaxSid, status)
	if seen, err := s.ledger.Seen(ctx, deliveryKey); err == nil && seen {
		s.metrics.WebhookEvents.WithLabelValues("twilio", "replayed").Inc()
		return nil
	}

	fax, err := s.faxes.FindBySid(ctx, cb.FaxSid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.WebhookEvents.WithLabelValues("twilio", "unknown_sid").Inc()
			s.logger.WarnContext(ctx, "callback for unknown fax", "fax_sid", cb.FaxSid)
			return nil
		}
		return fmt.Errorf("loading fax %s: %w", cb.FaxSid, err)
	}

	if fax.Status.Terminal() {
		s.metrics.WebhookEvents.WithLabelValues("twilio", "replayed").Inc()
		return nil
	}
	if fax.Status == status {
		// Progress callbacks repeat; nothing changed.
		return nil
	}

	fax.Status = status
	fax.UpdatedAt = requestcontext.Now(ctx)

	fallback := status == DeliveryFailed && !fax.FallbackEmailSent
	if fallback {
		fax.FallbackEmailSent = true
	}
	if err := s.faxes.Update(ctx, fax); err != nil {
		return fmt.Errorf("updating fax %s: %w", cb.FaxSid, err)
	}
	if _, err := s.ledger.MarkProcessed(ctx, deliveryKey); err != nil {
		s.logger.WarnContext(ctx, "webhook dedup ledger unavailable", "error", err)
	}

	s.metrics.FaxTransitions.WithLabelValues(string(status)).Inc()
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: fax.ApplicationID,
		Action:        string(audit.EventFaxStatusChanged),
		CorrelationID: fax.FaxSid,
		Metadata: audit.Meta(
			"status", string(status),
			"provider_status", cb.Status,
			"error_code", cb.ErrorCode,
		),
	})

	if fallback {
		s.sendFallback(ctx, fax)
	}
	return nil
}

// sendFallback emails the certification form to the provider after the fax
// definitively failed, and purges the queued document.
func (s *Service) sendFallback(ctx context.Context, fax *FaxTransmission) {
	first, last := email.DeriveNameFromEmail(fax.RecipientEmail)
	s.notifier.Notify(ctx, notify.Event{
		Type:          "fax_failed_fallback",
		Channel:       notify.ChannelEmail,
		ApplicationID: fax.ApplicationID,
		Metadata: notify.Meta(
			"fax_sid", fax.FaxSid,
			"recipient_email", fax.RecipientEmail,
			"recipient_name", first+" "+last,
		),
	})
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: fax.ApplicationID,
		Action:        string(audit.EventFaxFallbackEmail),
		CorrelationID: fax.FaxSid,
	})

	if fax.BlobKey != "" {
		if err := s.blobs.Purge(ctx, fax.BlobKey); err != nil {
			s.logger.WarnContext(ctx, "failed to purge queued fax document",
				"fax_sid", fax.FaxSid, "blob_key", fax.BlobKey, "error", err)
		}
	}
}
