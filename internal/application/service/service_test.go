package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vouchsafe/internal/application/models"
	"vouchsafe/internal/application/service/mocks"
	applicationstore "vouchsafe/internal/application/store/application"
	statuschangestore "vouchsafe/internal/application/store/statuschange"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/voucher"
	id "vouchsafe/pkg/domain"
	dErrors "vouchsafe/pkg/domain-errors"
	"vouchsafe/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	ctx      context.Context
	now      time.Time
	apps     *applicationstore.MemoryStore
	changes  *statuschangestore.MemoryStore
	vouchers *mocks.MockVoucherIssuer
	guardian *mocks.MockGuardianChecker
	signing  *mocks.MockSigningProvider
	auditLog *audit.MemoryStore
	notifier *notify.Recorder
	svc      *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.apps = applicationstore.NewMemory()
	s.changes = statuschangestore.NewMemory()
	s.vouchers = mocks.NewMockVoucherIssuer(s.ctrl)
	s.guardian = mocks.NewMockGuardianChecker(s.ctrl)
	s.signing = mocks.NewMockSigningProvider(s.ctrl)
	s.auditLog = audit.NewMemoryStore()
	s.notifier = notify.NewRecorder()
	logger := slog.New(slog.DiscardHandler)

	s.svc = New(Config{
		Applications:       s.apps,
		StatusChanges:      s.changes,
		Vouchers:           s.vouchers,
		Guardian:           s.guardian,
		Signing:            s.signing,
		Audit:              audit.NewPublisher(s.auditLog, logger),
		Notifier:           s.notifier,
		Metrics:            metrics.NewForTest(),
		Logger:             logger,
		WaitingPeriodYears: 3,
	})
}

func (s *ServiceSuite) intake() models.NewApplication {
	return models.NewApplication{
		UserID:           id.NewUserID(),
		SubmissionMethod: models.SubmissionWeb,
		HouseholdSize:    2,
	}
}

func (s *ServiceSuite) TestCreateFirstApplication() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, app.Status)
	s.Equal(s.now, app.ApplicationDate)
	s.Equal(1, s.auditLog.CountByAction(audit.EventApplicationCreated))
}

func (s *ServiceSuite) TestWaitingPeriodBlocksReapplication() {
	intake := s.intake()
	// Prior application one year ago: still inside the three-year window.
	intake.ApplicationDate = s.now.AddDate(-1, 0, 0)
	_, err := s.svc.Create(s.ctx, intake, SubmissionContext{})
	s.Require().NoError(err)

	intake.ApplicationDate = time.Time{}
	_, err = s.svc.Create(s.ctx, intake, SubmissionContext{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestWaitingPeriodElapsedAllowsReapplication() {
	intake := s.intake()
	intake.ApplicationDate = s.now.AddDate(-4, 0, 0)
	_, err := s.svc.Create(s.ctx, intake, SubmissionContext{})
	s.Require().NoError(err)

	intake.ApplicationDate = time.Time{}
	_, err = s.svc.Create(s.ctx, intake, SubmissionContext{})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestPaperIntakeCanSkipWaitingPeriod() {
	intake := s.intake()
	intake.ApplicationDate = s.now.AddDate(-1, 0, 0)
	_, err := s.svc.Create(s.ctx, intake, SubmissionContext{})
	s.Require().NoError(err)

	intake.ApplicationDate = time.Time{}
	app, err := s.svc.SubmitPaper(s.ctx, intake, true)
	s.Require().NoError(err)
	s.Equal(models.SubmissionPaper, app.SubmissionMethod)
}

func (s *ServiceSuite) TestGuardianMustBeLinked() {
	intake := s.intake()
	intake.ManagingGuardianID = id.NewUserID()
	s.guardian.EXPECT().
		CanManage(gomock.Any(), intake.ManagingGuardianID, intake.UserID).
		Return(false, nil)

	_, err := s.svc.Create(s.ctx, intake, SubmissionContext{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestLinkedGuardianCanApply() {
	intake := s.intake()
	intake.ManagingGuardianID = id.NewUserID()
	s.guardian.EXPECT().
		CanManage(gomock.Any(), intake.ManagingGuardianID, intake.UserID).
		Return(true, nil)

	app, err := s.svc.Create(s.ctx, intake, SubmissionContext{})
	s.Require().NoError(err)
	s.True(app.GuardianManaged())
}

func (s *ServiceSuite) TestTransitionRecordsStatusChange() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	updated, err := s.svc.Transition(s.ctx, app.ID, models.StatusNeedsInformation, "missing proof of residency")
	s.Require().NoError(err)
	s.Equal(models.StatusNeedsInformation, updated.Status)

	trail, err := s.changes.ListByApplication(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(models.StatusInProgress, trail[0].FromStatus)
	s.Equal(models.StatusNeedsInformation, trail[0].ToStatus)
}

func (s *ServiceSuite) TestIllegalTransitionRefused() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	_, err = s.svc.Transition(s.ctx, app.ID, models.StatusDraft, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestCannotApproveWithPendingProofs() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	_, err = s.svc.Transition(s.ctx, app.ID, models.StatusApproved, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) approveAllProofs(appID id.ApplicationID) {
	_, err := s.apps.Execute(s.ctx, appID,
		func(*models.Application) error { return nil },
		func(app *models.Application) {
			app.IncomeProofStatus = models.ProofStatusApproved
			app.ResidencyProofStatus = models.ProofStatusApproved
			app.CertificationStatus = models.CertificationApproved
		})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestAutoApprovePromotesAndIssuesVoucher() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)
	s.approveAllProofs(app.ID)

	s.vouchers.EXPECT().
		Issue(gomock.Any(), gomock.Any()).
		Return(&voucher.Issued{Voucher: &voucher.Voucher{ID: id.NewVoucherID()}}, nil)

	s.Require().NoError(s.svc.MaybeAutoApprove(s.ctx, app.ID))

	stored, err := s.apps.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, stored.Status)
	s.Equal(1, s.auditLog.CountByAction(audit.EventApplicationAutoApproved))
	s.Equal(1, s.notifier.CountByType("application_approved"))
}

func (s *ServiceSuite) TestAutoApproveNoOpWhenProofsPending() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.MaybeAutoApprove(s.ctx, app.ID))

	stored, err := s.apps.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, stored.Status)
	s.Equal(0, s.auditLog.CountByAction(audit.EventApplicationAutoApproved))
}

func (s *ServiceSuite) TestAutoApproveIsIdempotent() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)
	s.approveAllProofs(app.ID)

	s.vouchers.EXPECT().
		Issue(gomock.Any(), gomock.Any()).
		Return(&voucher.Issued{Voucher: &voucher.Voucher{ID: id.NewVoucherID()}}, nil)

	s.Require().NoError(s.svc.MaybeAutoApprove(s.ctx, app.ID))
	// Second evaluation finds the application already approved and does
	// nothing: no second voucher, no second audit event.
	s.Require().NoError(s.svc.MaybeAutoApprove(s.ctx, app.ID))
	s.Equal(1, s.auditLog.CountByAction(audit.EventApplicationAutoApproved))
}

func (s *ServiceSuite) TestRequestMedicalCertification() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	s.signing.EXPECT().
		CreateSubmission(gomock.Any(), gomock.Any()).
		Return("sub-123", nil)

	updated, err := s.svc.RequestMedicalCertification(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.CertificationRequested, updated.CertificationStatus)
	s.Equal(models.SigningSent, updated.SigningStatus)
	s.Equal("sub-123", updated.SigningSubmissionID)
	s.Equal(1, updated.SigningRequestCount)
	s.Equal(1, s.auditLog.CountByAction(audit.EventCertificationSent))
}

func (s *ServiceSuite) TestCertificationRequestWhileSentConflicts() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	s.signing.EXPECT().
		CreateSubmission(gomock.Any(), gomock.Any()).
		Return("sub-123", nil)
	_, err = s.svc.RequestMedicalCertification(s.ctx, app.ID)
	s.Require().NoError(err)

	_, err = s.svc.RequestMedicalCertification(s.ctx, app.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestResendAfterDeclineIncrementsCounter() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	s.signing.EXPECT().
		CreateSubmission(gomock.Any(), gomock.Any()).
		Return("sub-1", nil)
	_, err = s.svc.RequestMedicalCertification(s.ctx, app.ID)
	s.Require().NoError(err)

	_, err = s.apps.Execute(s.ctx, app.ID,
		func(*models.Application) error { return nil },
		func(app *models.Application) { app.SigningStatus = models.SigningDeclined })
	s.Require().NoError(err)

	s.signing.EXPECT().
		CreateSubmission(gomock.Any(), gomock.Any()).
		Return("sub-2", nil)
	updated, err := s.svc.RequestMedicalCertification(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(2, updated.SigningRequestCount)
	s.Equal("sub-2", updated.SigningSubmissionID)
}

func (s *ServiceSuite) TestCertificationApprovalCompletesApplication() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	_, err = s.apps.Execute(s.ctx, app.ID,
		func(*models.Application) error { return nil },
		func(app *models.Application) {
			app.IncomeProofStatus = models.ProofStatusApproved
			app.ResidencyProofStatus = models.ProofStatusApproved
			app.CertificationStatus = models.CertificationReceived
		})
	s.Require().NoError(err)

	s.vouchers.EXPECT().
		Issue(gomock.Any(), gomock.Any()).
		Return(&voucher.Issued{Voucher: &voucher.Voucher{ID: id.NewVoucherID()}}, nil)

	_, err = s.svc.ReviewCertification(s.ctx, app.ID, true, "")
	s.Require().NoError(err)

	stored, err := s.apps.FindByID(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.CertificationApproved, stored.CertificationStatus)
	s.Equal(models.StatusApproved, stored.Status)
}

func (s *ServiceSuite) TestCertificationRejectionNotifies() {
	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	_, err = s.apps.Execute(s.ctx, app.ID,
		func(*models.Application) error { return nil },
		func(app *models.Application) { app.CertificationStatus = models.CertificationReceived })
	s.Require().NoError(err)

	updated, err := s.svc.ReviewCertification(s.ctx, app.ID, false, "form incomplete")
	s.Require().NoError(err)
	s.Equal(models.CertificationRejected, updated.CertificationStatus)
	s.Equal(1, s.notifier.CountByType("certification_rejected"))
}

func (s *ServiceSuite) TestPostCommitHookRuns() {
	var got []models.Status
	s.svc.RegisterHook(func(_ context.Context, from models.Status, app *models.Application) {
		got = append(got, app.Status)
	})

	app, err := s.svc.Create(s.ctx, s.intake(), SubmissionContext{})
	s.Require().NoError(err)

	_, err = s.svc.Transition(s.ctx, app.ID, models.StatusAwaitingDocuments, "")
	s.Require().NoError(err)
	s.Equal([]models.Status{models.StatusAwaitingDocuments}, got)
}
