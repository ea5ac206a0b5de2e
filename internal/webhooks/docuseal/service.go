package docuseal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"vouchsafe/internal/application/models"
	"vouchsafe/internal/application/store"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/storage"
	"vouchsafe/internal/webhooks/dedup"
	"vouchsafe/pkg/platform/sentinel"
	"vouchsafe/pkg/requestcontext"
)

var tracer = otel.Tracer("vouchsafe/webhooks/docuseal")

// Outcome labels for webhook metrics.
const (
	outcomeProcessed      = "processed"
	outcomeReplayed       = "replayed"
	outcomeUnknown        = "unknown_submission"
	outcomeDownloadFailed = "download_failed"
	outcomeIgnored        = "ignored"
)

// Service applies e-signature webhook events to applications. Every path
// returns nil so the HTTP handler can acknowledge the delivery; errors are
// reserved for infrastructure faults where a retry could help nobody but
// still must be visible.
type Service struct {
	apps       store.ApplicationStore
	blobs      storage.BlobStore
	ledger     dedup.Ledger
	downloader Downloader
	audit      *audit.Publisher
	notifier   notify.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewService wires the webhook service.
func NewService(
	apps store.ApplicationStore,
	blobs storage.BlobStore,
	ledger dedup.Ledger,
	downloader Downloader,
	auditor *audit.Publisher,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		apps:       apps,
		blobs:      blobs,
		ledger:     ledger,
		downloader: downloader,
		audit:      auditor,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
	}
}

// Process routes one webhook delivery.
func (s *Service) Process(ctx context.Context, payload Payload) error {
	ctx, span := tracer.Start(ctx, "docuseal.Process")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_type", payload.EventType),
		attribute.String("submission_id", payload.Data.SubmissionID.String()),
	)

	switch payload.EventType {
	case EventFormCompleted:
		return s.processCompleted(ctx, payload)
	case EventFormDeclined:
		return s.processDeclined(ctx, payload)
	default:
		s.metrics.WebhookEvents.WithLabelValues("docuseal", outcomeIgnored).Inc()
		s.logger.InfoContext(ctx, "ignoring webhook event",
			"provider", "docuseal", "event_type", payload.EventType)
		return nil
	}
}

// processCompleted downloads the signed certification and marks it received.
// Deliveries are recognized as replays two ways: the application already
// carries this document URL as signed, or the dedup ledger has the delivery
// key. Either way the event is acknowledged without re-applying effects.
func (s *Service) processCompleted(ctx context.Context, payload Payload) error {
	submissionID := payload.Data.SubmissionID.String()
	documentURL := payload.Data.DocumentURL()

	app, err := s.apps.FindBySigningSubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.WebhookEvents.WithLabelValues("docuseal", outcomeUnknown).Inc()
			s.logger.WarnContext(ctx, "webhook for unknown submission",
				"provider", "docuseal", "submission_id", submissionID)
			return nil
		}
		return fmt.Errorf("resolving submission %s: %w", submissionID, err)
	}

	if app.SignedDocumentProcessed(documentURL) {
		s.recordReplay(ctx, app, submissionID)
		return nil
	}
	deliveryKey := fmt.Sprintf("docuseal:%s:%s", submissionID, documentURL)
	seen, err := s.ledger.Seen(ctx, deliveryKey)
	if err != nil {
		// The application state remains the durable guard; a ledger outage
		// must not drop the event.
		s.logger.WarnContext(ctx, "webhook dedup ledger unavailable", "error", err)
	} else if seen {
		s.recordReplay(ctx, app, submissionID)
		return nil
	}

	if documentURL == "" {
		s.recordDownloadFailure(ctx, app, submissionID, errors.New("payload carries no document"))
		return nil
	}

	document, err := s.downloader.Download(ctx, documentURL)
	if err != nil {
		// The certification status is left untouched: a signed form we could
		// not retrieve was never received. Staff follow up from the audit
		// trail; the provider's next retry takes the normal path because the
		// application never recorded this URL.
		s.recordDownloadFailure(ctx, app, submissionID, err)
		return nil
	}

	blobKey := fmt.Sprintf("certifications/%s/%s.pdf", app.ID, submissionID)
	if err := s.blobs.Put(ctx, storage.Blob{
		Key:         blobKey,
		ContentType: "application/pdf",
		Data:        document,
		UploadedAt:  requestcontext.Now(ctx),
	}); err != nil {
		s.recordDownloadFailure(ctx, app, submissionID, err)
		return nil
	}

	if _, err := s.apps.Execute(ctx, app.ID,
		func(app *models.Application) error {
			if app.SignedDocumentProcessed(documentURL) {
				return sentinel.ErrConflict
			}
			return nil
		},
		func(app *models.Application) {
			if app.SigningStatus.CanTransitionTo(models.SigningSigned) {
				app.SigningStatus = models.SigningSigned
			}
			app.SignedDocumentURL = documentURL
			// A decided certification is not reopened by a late re-signing;
			// anything still undecided becomes received.
			if app.CertificationStatus.CanTransitionTo(models.CertificationReceived) {
				app.CertificationStatus = models.CertificationReceived
			}
			app.UpdatedAt = requestcontext.Now(ctx)
		},
	); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a concurrent delivery of the same document.
			s.recordReplay(ctx, app, submissionID)
			return nil
		}
		return fmt.Errorf("applying completed submission %s: %w", submissionID, err)
	}

	// Record the delivery only after its effects are committed; a failed
	// download above must leave the retry path open.
	if _, err := s.ledger.MarkProcessed(ctx, deliveryKey); err != nil {
		s.logger.WarnContext(ctx, "webhook dedup ledger unavailable", "error", err)
	}

	s.metrics.WebhookEvents.WithLabelValues("docuseal", outcomeProcessed).Inc()
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventSigningCompleted),
		CorrelationID: submissionID,
		Metadata: audit.Meta(
			"document_url", documentURL,
			"audit_log_url", payload.Data.AuditLogURL,
		),
	})
	return nil
}

// processDeclined marks the signing request declined. Declines carry no
// document, so they apply unconditionally; a decline arriving after the form
// was signed is ignored.
func (s *Service) processDeclined(ctx context.Context, payload Payload) error {
	submissionID := payload.Data.SubmissionID.String()

	app, err := s.apps.FindBySigningSubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.WebhookEvents.WithLabelValues("docuseal", outcomeUnknown).Inc()
			return nil
		}
		return fmt.Errorf("resolving submission %s: %w", submissionID, err)
	}

	var applied bool
	if _, err := s.apps.Execute(ctx, app.ID,
		func(app *models.Application) error {
			applied = app.SigningStatus.CanTransitionTo(models.SigningDeclined)
			return nil
		},
		func(app *models.Application) {
			if applied {
				app.SigningStatus = models.SigningDeclined
				app.UpdatedAt = requestcontext.Now(ctx)
			}
		},
	); err != nil {
		return fmt.Errorf("applying declined submission %s: %w", submissionID, err)
	}
	if !applied {
		s.recordReplay(ctx, app, submissionID)
		return nil
	}

	s.metrics.WebhookEvents.WithLabelValues("docuseal", outcomeProcessed).Inc()
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventSigningDeclined),
		CorrelationID: submissionID,
		Metadata:      audit.Meta("decline_reason", payload.Data.DeclineReason),
	})
	s.notifier.Notify(ctx, notify.Event{
		Type:          "certification_declined",
		Channel:       notify.ChannelEmail,
		RecipientID:   app.UserID,
		ApplicationID: app.ID,
		Metadata:      notify.Meta("decline_reason", payload.Data.DeclineReason),
	})
	return nil
}

func (s *Service) recordReplay(ctx context.Context, app *models.Application, submissionID string) {
	s.metrics.WebhookEvents.WithLabelValues("docuseal", outcomeReplayed).Inc()
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventSigningReplayed),
		CorrelationID: submissionID,
	})
}

func (s *Service) recordDownloadFailure(ctx context.Context, app *models.Application, submissionID string, cause error) {
	s.metrics.WebhookEvents.WithLabelValues("docuseal", outcomeDownloadFailed).Inc()
	s.metrics.AttachmentFailures.Inc()
	s.logger.ErrorContext(ctx, "signed document could not be attached",
		"application_id", app.ID.String(),
		"submission_id", submissionID,
		"error", cause,
	)
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventAttachmentFailed),
		CorrelationID: submissionID,
		Metadata:      audit.Meta("error", cause.Error()),
	})
}
