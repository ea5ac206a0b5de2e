// Package attach binds an uploaded proof document to an application and sets
// the proof's review state in one guarded step. Every intake channel — web
// upload, paper scan, email, e-signature download — funnels through here so
// the success and failure paths are audited identically.
package attach

import (
	"context"
	"fmt"
	"log/slog"

	"vouchsafe/internal/application/models"
	"vouchsafe/internal/application/store"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/storage"
	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/requestcontext"
)

// AutoApprover re-evaluates an application for approval after a proof
// reaches approved state. Implemented by the application service.
type AutoApprover interface {
	MaybeAutoApprove(ctx context.Context, appID id.ApplicationID) error
}

// Service attaches proof documents and flips proof review state.
type Service struct {
	apps     store.ApplicationStore
	blobs    storage.BlobStore
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	approver AutoApprover
	logger   *slog.Logger
}

// NewService wires the attachment service. approver may be nil when approval
// re-evaluation is handled by the caller.
func NewService(
	apps store.ApplicationStore,
	blobs storage.BlobStore,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	approver AutoApprover,
	logger *slog.Logger,
) *Service {
	return &Service{
		apps:     apps,
		blobs:    blobs,
		audit:    auditor,
		metrics:  m,
		approver: approver,
		logger:   logger,
	}
}

// Request carries one proof attachment.
type Request struct {
	ApplicationID id.ApplicationID
	ProofType     models.ProofType
	// Status is the review state the proof lands in: not_reviewed for a
	// plain upload, approved for reviewed-at-intake paper proofs, rejected
	// for intake rejections (which may carry no document).
	Status      models.ProofStatus
	Upload      []byte
	Filename    string
	ContentType string
	Method      models.SubmissionMethod
	Metadata    map[string]any
}

func (r Request) validate() error {
	if r.ApplicationID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "application ID is required")
	}
	if !r.ProofType.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown proof type %q", r.ProofType)
	}
	if !r.Status.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown proof status %q", r.Status)
	}
	// An approval asserts a reviewer saw a document; it cannot stand on an
	// empty upload. Rejections may arrive without one.
	if r.Status == models.ProofStatusApproved && len(r.Upload) == 0 {
		return dErrors.New(dErrors.CodeValidation, "cannot approve a proof without an attached document")
	}
	if len(r.Upload) > 0 && r.Filename == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "filename is required for uploads")
	}
	return nil
}

func (r Request) blobKey() string {
	return fmt.Sprintf("proofs/%s/%s/%s", r.ApplicationID, r.ProofType, r.Filename)
}

// Attach stores the document and sets the proof status atomically with
// respect to the application row. If anything fails, the application is left
// untouched and the failure is audited so staff can follow up manually.
func (s *Service) Attach(ctx context.Context, req Request) (*models.Application, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// Store the document before touching status. A failed write here leaves
	// the application exactly as it was.
	hasUpload := len(req.Upload) > 0
	if hasUpload {
		blob := storage.Blob{
			Key:         req.blobKey(),
			ContentType: req.ContentType,
			Data:        req.Upload,
			UploadedAt:  requestcontext.Now(ctx),
		}
		if err := s.blobs.Put(ctx, blob); err != nil {
			s.recordFailure(ctx, req, err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "storing proof document")
		}
	}

	var resubmission bool
	app, err := s.apps.Execute(ctx, req.ApplicationID,
		func(app *models.Application) error {
			current := app.ProofStatusFor(req.ProofType)
			resubmission = current == models.ProofStatusRejected
			if current == req.Status && req.Status == models.ProofStatusNotReviewed {
				// Re-upload before any review happened. Keep the new
				// document, no status change needed.
				return nil
			}
			if !current.CanTransitionTo(req.Status) {
				return dErrors.Newf(dErrors.CodeInvalidInput,
					"%s proof cannot move from %s to %s", req.ProofType, current, req.Status)
			}
			return nil
		},
		func(app *models.Application) {
			app.SetProofStatus(req.ProofType, req.Status)
			app.UpdatedAt = requestcontext.Now(ctx)
		},
	)
	if err != nil {
		if hasUpload {
			if purgeErr := s.blobs.Purge(ctx, req.blobKey()); purgeErr != nil {
				s.logger.WarnContext(ctx, "failed to purge orphaned proof blob",
					"key", req.blobKey(), "error", purgeErr)
			}
		}
		s.recordFailure(ctx, req, err)
		return nil, err
	}

	action := audit.EventProofAttached
	if resubmission && req.Status == models.ProofStatusNotReviewed {
		action = audit.EventProofResubmitted
	}
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: req.ApplicationID,
		Action:        string(action),
		Metadata: audit.Meta(
			"proof_type", string(req.ProofType),
			"status", string(req.Status),
			"submission_method", string(req.Method),
			"has_document", hasUpload,
		),
	})

	if req.Status == models.ProofStatusApproved && s.approver != nil {
		if err := s.approver.MaybeAutoApprove(ctx, req.ApplicationID); err != nil {
			// The attachment itself succeeded; approval re-evaluation runs
			// again on the next proof event.
			s.logger.ErrorContext(ctx, "auto-approval evaluation failed",
				"application_id", req.ApplicationID.String(), "error", err)
		}
	}

	return app, nil
}

func (s *Service) recordFailure(ctx context.Context, req Request, cause error) {
	s.metrics.AttachmentFailures.Inc()
	s.logger.ErrorContext(ctx, "proof attachment failed",
		"application_id", req.ApplicationID.String(),
		"proof_type", string(req.ProofType),
		"error", cause,
	)
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: req.ApplicationID,
		Action:        string(audit.EventAttachmentFailed),
		Metadata: audit.Meta(
			"proof_type", string(req.ProofType),
			"submission_method", string(req.Method),
			"error", cause.Error(),
		),
	})
}
