// Package service drives the application lifecycle: intake, status
// transitions, certification requests, and approval. All status mutations go
// through here so transition legality, audit, and the approval invariant are
// enforced in exactly one place.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"vouchsafe/internal/application/models"
	"vouchsafe/internal/application/store"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/voucher"
	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/platform/sentinel"
	"vouchsafe/pkg/requestcontext"
)

var tracer = otel.Tracer("vouchsafe/application/service")

// VoucherIssuer creates the voucher when an application reaches approved.
type VoucherIssuer interface {
	Issue(ctx context.Context, app *models.Application) (*voucher.Issued, error)
}

// GuardianChecker gates guardian-submitted applications.
type GuardianChecker interface {
	CanManage(ctx context.Context, guardianID, dependentID id.UserID) (bool, error)
}

// SigningProvider creates e-signature submissions for the medical
// certification form and returns the provider's submission ID.
type SigningProvider interface {
	CreateSubmission(ctx context.Context, app *models.Application) (string, error)
}

// Hook runs after a status change has been committed. Hooks must tolerate
// being skipped on process crash; anything that must not be lost belongs in
// the transaction, not in a hook.
type Hook func(ctx context.Context, from models.Status, app *models.Application)

// SubmissionContext states how an application arrived and which intake
// policies apply. Passed explicitly so nothing about the channel lives in
// package state.
type SubmissionContext struct {
	// Paper marks admin-entered paper applications.
	Paper bool
	// SkipWaitingPeriod lets an admin override the reapplication waiting
	// period for paper intake. Ignored unless Paper is set.
	SkipWaitingPeriod bool
}

// Service orchestrates the application lifecycle.
type Service struct {
	apps     store.ApplicationStore
	changes  store.StatusChangeStore
	vouchers VoucherIssuer
	guardian GuardianChecker
	signing  SigningProvider
	audit    *audit.Publisher
	notifier notify.Dispatcher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	waitingPeriodYears int
	hooks              []Hook
}

// Config carries the service's dependencies.
type Config struct {
	Applications  store.ApplicationStore
	StatusChanges store.StatusChangeStore
	Vouchers      VoucherIssuer
	Guardian      GuardianChecker
	Signing       SigningProvider
	Audit         *audit.Publisher
	Notifier      notify.Dispatcher
	Metrics       *metrics.Metrics
	Logger        *slog.Logger

	WaitingPeriodYears int
}

// New wires the application service.
func New(cfg Config) *Service {
	return &Service{
		apps:               cfg.Applications,
		changes:            cfg.StatusChanges,
		vouchers:           cfg.Vouchers,
		guardian:           cfg.Guardian,
		signing:            cfg.Signing,
		audit:              cfg.Audit,
		notifier:           cfg.Notifier,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger,
		waitingPeriodYears: cfg.WaitingPeriodYears,
	}
}

// RegisterHook appends a post-commit status hook. Not safe to call after the
// service starts handling requests.
func (s *Service) RegisterHook(h Hook) {
	s.hooks = append(s.hooks, h)
}

// Create opens a new application after the guardian and waiting-period
// guards pass.
func (s *Service) Create(ctx context.Context, intake models.NewApplication, sub SubmissionContext) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.Create")
	defer span.End()

	if err := intake.Validate(); err != nil {
		return nil, err
	}
	if sub.Paper {
		intake.SubmissionMethod = models.SubmissionPaper
	}

	if !intake.ManagingGuardianID.IsNil() && intake.ManagingGuardianID != intake.UserID {
		ok, err := s.guardian.CanManage(ctx, intake.ManagingGuardianID, intake.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, dErrors.New(dErrors.CodeForbidden, "guardian is not linked to this applicant")
		}
	}

	now := requestcontext.Now(ctx)
	if intake.ApplicationDate.IsZero() {
		intake.ApplicationDate = now
	}

	if !(sub.Paper && sub.SkipWaitingPeriod) {
		if err := s.checkWaitingPeriod(ctx, intake.UserID, intake.ApplicationDate); err != nil {
			return nil, err
		}
	}

	app := &models.Application{
		ID:                   id.NewApplicationID(),
		UserID:               intake.UserID,
		ManagingGuardianID:   intake.ManagingGuardianID,
		Status:               models.StatusInProgress,
		SubmissionMethod:     intake.SubmissionMethod,
		ApplicationDate:      intake.ApplicationDate,
		IncomeProofStatus:    models.ProofStatusNotReviewed,
		ResidencyProofStatus: models.ProofStatusNotReviewed,
		CertificationStatus:  models.CertificationNotRequested,
		SigningStatus:        models.SigningNotSent,
		HouseholdSize:        intake.HouseholdSize,
		AnnualIncomeCents:    intake.AnnualIncomeCents,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating application")
	}

	s.metrics.ApplicationsCreated.Inc()
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventApplicationCreated),
		Metadata: audit.Meta(
			"submission_method", string(app.SubmissionMethod),
			"paper", sub.Paper,
			"guardian_managed", app.GuardianManaged(),
		),
	})
	return app, nil
}

// SubmitPaper records an admin-entered paper application.
func (s *Service) SubmitPaper(ctx context.Context, intake models.NewApplication, skipWaitingPeriod bool) (*models.Application, error) {
	return s.Create(ctx, intake, SubmissionContext{Paper: true, SkipWaitingPeriod: skipWaitingPeriod})
}

// checkWaitingPeriod rejects a new application when the user's most recent
// one is younger than the program waiting period, regardless of its outcome.
func (s *Service) checkWaitingPeriod(ctx context.Context, userID id.UserID, asOf time.Time) error {
	latest, err := s.apps.LatestByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "looking up prior applications")
	}

	eligibleAt := latest.ApplicationDate.AddDate(s.waitingPeriodYears, 0, 0)
	if asOf.Before(eligibleAt) {
		return dErrors.Newf(dErrors.CodeValidation,
			"a new application cannot be filed before %s", eligibleAt.Format("2006-01-02"))
	}
	return nil
}

// Get loads one application.
func (s *Service) Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading application")
	}
	return app, nil
}

// ListByUser returns the user's applications, most recent first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error) {
	apps, err := s.apps.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing applications")
	}
	return apps, nil
}

// Transition moves the application to target if the transition table allows
// it, records the change, and runs post-commit hooks.
func (s *Service) Transition(ctx context.Context, appID id.ApplicationID, target models.Status, reason string) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("target_status", string(target)))

	if !target.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", target)
	}

	var from models.Status
	app, err := s.apps.Execute(ctx, appID,
		func(app *models.Application) error {
			from = app.Status
			if !app.Status.CanTransitionTo(target) {
				return dErrors.Newf(dErrors.CodeInvalidInput,
					"application cannot move from %s to %s", app.Status, target)
			}
			// Approval is earned through proof review, not decreed.
			if target == models.StatusApproved && !app.ReadyForApproval() {
				return dErrors.New(dErrors.CodeInvariantViolation,
					"cannot approve: not all proofs are approved")
			}
			return nil
		},
		func(app *models.Application) {
			app.Status = target
			app.UpdatedAt = requestcontext.Now(ctx)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
		}
		return nil, err
	}

	s.afterStatusChange(ctx, from, app, map[string]any{"reason": reason})
	return app, nil
}

// RequestMedicalCertification sends (or re-sends after a decline) the
// certification form to the provider through the e-signature service. The
// request counter is incremented under the row lock so concurrent requests
// cannot lose updates.
func (s *Service) RequestMedicalCertification(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.RequestMedicalCertification")
	defer span.End()

	current, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if current.SigningStatus != models.SigningNotSent && current.SigningStatus != models.SigningDeclined {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"a certification request is already %s", current.SigningStatus)
	}

	submissionID, err := s.signing.CreateSubmission(ctx, current)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating e-signature submission")
	}

	app, err := s.apps.Execute(ctx, appID,
		func(app *models.Application) error {
			if !app.SigningStatus.CanTransitionTo(models.SigningSent) {
				return dErrors.Newf(dErrors.CodeConflict,
					"a certification request is already %s", app.SigningStatus)
			}
			return nil
		},
		func(app *models.Application) {
			if app.CertificationStatus == models.CertificationNotRequested {
				app.CertificationStatus = models.CertificationRequested
			}
			app.SigningStatus = models.SigningSent
			app.SigningSubmissionID = submissionID
			app.SigningRequestCount++
			app.UpdatedAt = requestcontext.Now(ctx)
		},
	)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventCertificationSent),
		CorrelationID: submissionID,
		Metadata:      audit.Meta("request_count", app.SigningRequestCount),
	})
	s.notifier.Notify(ctx, notify.Event{
		Type:          "certification_requested",
		Channel:       notify.ChannelEmail,
		RecipientID:   app.UserID,
		ApplicationID: app.ID,
	})
	return app, nil
}

// ReviewCertification records the admin decision on a received medical
// certification. Approving it re-evaluates the application for approval.
func (s *Service) ReviewCertification(ctx context.Context, appID id.ApplicationID, approve bool, reason string) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.ReviewCertification")
	defer span.End()

	target := models.CertificationApproved
	if !approve {
		target = models.CertificationRejected
	}

	app, err := s.apps.Execute(ctx, appID,
		func(app *models.Application) error {
			if !app.CertificationStatus.CanTransitionTo(target) {
				return dErrors.Newf(dErrors.CodeInvalidInput,
					"certification cannot move from %s to %s", app.CertificationStatus, target)
			}
			return nil
		},
		func(app *models.Application) {
			app.CertificationStatus = target
			app.UpdatedAt = requestcontext.Now(ctx)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
		}
		return nil, err
	}

	action := audit.EventProofApproved
	if !approve {
		action = audit.EventProofRejected
		s.notifier.Notify(ctx, notify.Event{
			Type:          "certification_rejected",
			Channel:       notify.ChannelEmail,
			RecipientID:   app.UserID,
			ApplicationID: app.ID,
			Metadata:      notify.Meta("reason", reason),
		})
	}
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(action),
		Metadata:      audit.Meta("proof_type", "medical_certification", "reason", reason),
	})

	if approve {
		if err := s.MaybeAutoApprove(ctx, appID); err != nil {
			s.logger.ErrorContext(ctx, "auto-approval evaluation failed",
				"application_id", appID.String(), "error", err)
		}
	}
	return app, nil
}

// MaybeAutoApprove promotes the application to approved once all three proof
// dimensions are approved. Calling it when the condition does not hold, or
// when the application is already approved, is a no-op, so every proof event
// can trigger it safely.
func (s *Service) MaybeAutoApprove(ctx context.Context, appID id.ApplicationID) error {
	ctx, span := tracer.Start(ctx, "application.MaybeAutoApprove")
	defer span.End()

	var (
		from     models.Status
		promoted bool
	)
	app, err := s.apps.Execute(ctx, appID,
		func(app *models.Application) error {
			from = app.Status
			promoted = app.Status != models.StatusApproved &&
				app.ReadyForApproval() &&
				app.Status.CanTransitionTo(models.StatusApproved)
			return nil
		},
		func(app *models.Application) {
			if promoted {
				app.Status = models.StatusApproved
				app.UpdatedAt = requestcontext.Now(ctx)
			}
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
		}
		return err
	}
	if !promoted {
		return nil
	}

	s.metrics.ApplicationsAutoApproved.Inc()
	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventApplicationAutoApproved),
	})
	s.afterStatusChange(ctx, from, app, map[string]any{"auto": true})
	return nil
}

// afterStatusChange appends the status trail row, runs hooks, and performs
// the side effects tied to particular statuses.
func (s *Service) afterStatusChange(ctx context.Context, from models.Status, app *models.Application, metadata map[string]any) {
	change := &models.StatusChange{
		ApplicationID: app.ID,
		FromStatus:    from,
		ToStatus:      app.Status,
		ChangedAt:     requestcontext.Now(ctx),
		ActorID:       requestcontext.ActorID(ctx),
		Metadata:      metadata,
	}
	if err := s.changes.Append(ctx, change); err != nil {
		s.logger.ErrorContext(ctx, "failed to append status change",
			"application_id", app.ID.String(), "error", err)
	}

	s.audit.Emit(ctx, audit.Event{
		ApplicationID: app.ID,
		Action:        string(audit.EventStatusChanged),
		Metadata: audit.Meta(
			"from", string(from),
			"to", string(app.Status),
		),
	})

	switch app.Status {
	case models.StatusApproved:
		if _, err := s.vouchers.Issue(ctx, app); err != nil {
			// The approval stands; issuance is retried by staff tooling.
			s.logger.ErrorContext(ctx, "voucher issuance failed",
				"application_id", app.ID.String(), "error", err)
		}
		s.notifier.Notify(ctx, notify.Event{
			Type:          "application_approved",
			Channel:       notify.ChannelEmail,
			RecipientID:   app.UserID,
			ApplicationID: app.ID,
		})
	case models.StatusRejected:
		s.notifier.Notify(ctx, notify.Event{
			Type:          "application_rejected",
			Channel:       notify.ChannelLetter,
			RecipientID:   app.UserID,
			ApplicationID: app.ID,
		})
	}

	for _, hook := range s.hooks {
		hook(ctx, from, app)
	}
}
