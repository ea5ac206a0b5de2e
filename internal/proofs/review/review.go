// Package review applies admin decisions to submitted proofs. Approvals and
// rejections both write a ProofReview record; an application holds at most
// one current rejection per proof type, so repeat rejections update the
// existing record instead of stacking new ones.
package review

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"vouchsafe/internal/application/models"
	"vouchsafe/internal/application/store"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/proofs/attach"
	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/platform/sentinel"
	"vouchsafe/pkg/requestcontext"
)

var tracer = otel.Tracer("vouchsafe/proofs/review")

// Reviewer records proof review decisions.
type Reviewer struct {
	apps     store.ApplicationStore
	reviews  store.ReviewStore
	audit    *audit.Publisher
	notifier notify.Dispatcher
	metrics  *metrics.Metrics
	approver attach.AutoApprover
	logger   *slog.Logger
}

// NewReviewer wires the proof reviewer. approver may be nil.
func NewReviewer(
	apps store.ApplicationStore,
	reviews store.ReviewStore,
	auditor *audit.Publisher,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	approver attach.AutoApprover,
	logger *slog.Logger,
) *Reviewer {
	return &Reviewer{
		apps:     apps,
		reviews:  reviews,
		audit:    auditor,
		notifier: notifier,
		metrics:  m,
		approver: approver,
		logger:   logger,
	}
}

// Request carries one review decision.
type Request struct {
	ApplicationID id.ApplicationID
	ProofType     models.ProofType
	Decision      models.ReviewDecision
	// ReviewerID defaults to the authenticated actor when unset.
	ReviewerID id.UserID

	// Rejection fields. ReasonCode is required for rejections.
	ReasonCode models.RejectionReasonCode
	Reason     string

	Method models.SubmissionMethod
}

func (r Request) validate() error {
	if r.ApplicationID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "application ID is required")
	}
	if !r.ProofType.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown proof type %q", r.ProofType)
	}
	switch r.Decision {
	case models.ReviewApproved:
	case models.ReviewRejected:
		if r.ReasonCode == "" {
			return dErrors.New(dErrors.CodeValidation, "rejections require a reason code")
		}
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown review decision %q", r.Decision)
	}
	return nil
}

// Review applies the decision: flips the proof status under the application
// row lock, writes the review record, and notifies the constituent about
// rejections. Approving the final outstanding proof re-evaluates the
// application for auto-approval.
func (r *Reviewer) Review(ctx context.Context, req Request) (*models.ProofReview, error) {
	ctx, span := tracer.Start(ctx, "review.Review")
	defer span.End()
	span.SetAttributes(
		attribute.String("proof_type", string(req.ProofType)),
		attribute.String("decision", string(req.Decision)),
	)

	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.ReviewerID.IsNil() {
		req.ReviewerID = requestcontext.ActorID(ctx)
	}
	if req.ReviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer identity is required")
	}

	target := models.ProofStatusApproved
	if req.Decision == models.ReviewRejected {
		target = models.ProofStatusRejected
	}

	app, err := r.apps.Execute(ctx, req.ApplicationID,
		func(app *models.Application) error {
			current := app.ProofStatusFor(req.ProofType)
			// Rejecting an already-rejected proof amends the current
			// rejection record; the status field stays put.
			if current == models.ProofStatusRejected && target == models.ProofStatusRejected {
				return nil
			}
			if !current.CanTransitionTo(target) {
				return dErrors.Newf(dErrors.CodeInvalidInput,
					"%s proof cannot move from %s to %s", req.ProofType, current, target)
			}
			return nil
		},
		func(app *models.Application) {
			app.SetProofStatus(req.ProofType, target)
			app.UpdatedAt = requestcontext.Now(ctx)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
		}
		return nil, err
	}

	record, err := r.saveRecord(ctx, app, req)
	if err != nil {
		return nil, err
	}

	r.metrics.ProofReviews.WithLabelValues(string(req.ProofType), string(req.Decision)).Inc()

	if req.Decision == models.ReviewRejected {
		r.audit.Emit(ctx, audit.Event{
			ApplicationID: req.ApplicationID,
			ActorID:       req.ReviewerID,
			Action:        string(audit.EventProofRejected),
			Metadata: audit.Meta(
				"proof_type", string(req.ProofType),
				"reason_code", string(req.ReasonCode),
			),
		})
		r.notifier.Notify(ctx, notify.Event{
			Type:          "proof_rejected",
			Channel:       notify.ChannelEmail,
			RecipientID:   app.UserID,
			ActorID:       req.ReviewerID,
			ApplicationID: app.ID,
			Metadata: notify.Meta(
				"proof_type", string(req.ProofType),
				"reason_code", string(req.ReasonCode),
				"reason", req.Reason,
			),
		})
		return record, nil
	}

	r.audit.Emit(ctx, audit.Event{
		ApplicationID: req.ApplicationID,
		ActorID:       req.ReviewerID,
		Action:        string(audit.EventProofApproved),
		Metadata:      audit.Meta("proof_type", string(req.ProofType)),
	})
	if r.approver != nil {
		if err := r.approver.MaybeAutoApprove(ctx, req.ApplicationID); err != nil {
			r.logger.ErrorContext(ctx, "auto-approval evaluation failed",
				"application_id", req.ApplicationID.String(), "error", err)
		}
	}
	return record, nil
}

// saveRecord writes the decision. A rejection reuses the proof type's current
// rejected record when one exists, keeping a single live rejection per type.
func (r *Reviewer) saveRecord(ctx context.Context, app *models.Application, req Request) (*models.ProofReview, error) {
	now := requestcontext.Now(ctx)
	record := &models.ProofReview{
		ID:            id.NewProofReviewID(),
		ApplicationID: app.ID,
		ProofType:     req.ProofType,
		Decision:      req.Decision,
		ReviewerID:    req.ReviewerID,
		SubmissionMethod: func() models.SubmissionMethod {
			if req.Method != "" {
				return req.Method
			}
			return models.SubmissionWeb
		}(),
		ReviewedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if req.Decision == models.ReviewRejected {
		record.RejectionReason = req.Reason
		record.RejectionReasonCode = req.ReasonCode

		existing, err := r.reviews.FindCurrentRejection(ctx, app.ID, req.ProofType)
		switch {
		case err == nil:
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
		case errors.Is(err, sentinel.ErrNotFound):
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "looking up current rejection")
		}
	}

	if err := r.reviews.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "saving proof review")
	}
	return record, nil
}
