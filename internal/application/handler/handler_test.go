package handler_test

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vouchsafe/internal/application/handler"
	"vouchsafe/internal/application/models"
	appservice "vouchsafe/internal/application/service"
	applicationstore "vouchsafe/internal/application/store/application"
	reviewstore "vouchsafe/internal/application/store/review"
	statuschangestore "vouchsafe/internal/application/store/statuschange"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/proofs/attach"
	"vouchsafe/internal/proofs/review"
	"vouchsafe/internal/storage"
	"vouchsafe/internal/voucher"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/requestcontext"
	"vouchsafe/pkg/testutil"
)

type stubVoucherIssuer struct{}

func (stubVoucherIssuer) Issue(_ context.Context, app *models.Application) (*voucher.Issued, error) {
	return &voucher.Issued{Voucher: &voucher.Voucher{ID: id.NewVoucherID(), ApplicationID: app.ID}}, nil
}

type stubGuardianChecker struct{ linked bool }

func (s stubGuardianChecker) CanManage(context.Context, id.UserID, id.UserID) (bool, error) {
	return s.linked, nil
}

type stubSigningProvider struct{}

func (stubSigningProvider) CreateSubmission(context.Context, *models.Application) (string, error) {
	return "sub-001", nil
}

type HandlerSuite struct {
	suite.Suite
	actor   id.UserID
	handler http.Handler
	svc     *appservice.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	m := metrics.NewForTest()
	auditor := audit.NewPublisher(audit.NewMemoryStore(), logger)
	notifier := notify.NewRecorder()
	apps := applicationstore.NewMemory()
	blobs := storage.NewMemory()

	s.actor = id.NewUserID()
	s.svc = appservice.New(appservice.Config{
		Applications:       apps,
		StatusChanges:      statuschangestore.NewMemory(),
		Vouchers:           stubVoucherIssuer{},
		Guardian:           stubGuardianChecker{},
		Signing:            stubSigningProvider{},
		Audit:              auditor,
		Notifier:           notifier,
		Metrics:            m,
		Logger:             logger,
		WaitingPeriodYears: 3,
	})
	attacher := attach.NewService(apps, blobs, auditor, m, s.svc, logger)
	reviewer := review.NewReviewer(apps, reviewstore.NewMemory(), auditor, notifier, m, s.svc, logger)

	s.handler = handler.New(s.svc, attacher, reviewer, auditor, logger).Routes()
}

// do executes a request with the actor injected the way the auth middleware
// would.
func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	ctx := requestcontext.WithActorID(req.Context(), s.actor)
	ctx = requestcontext.WithTime(ctx, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	return testutil.DoRequest(s.handler, req.WithContext(ctx))
}

func (s *HandlerSuite) TestCreateApplication() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/", map[string]any{
		"household_size":      2,
		"annual_income_cents": 1_200_000,
	})
	rec := s.do(req)

	s.Equal(http.StatusCreated, rec.Code)
	body := testutil.DecodeJSON(s.T(), rec)
	s.Equal(s.actor.String(), body["user_id"])
	s.Equal(string(models.StatusInProgress), body["status"])
}

func (s *HandlerSuite) TestCreateRejectsMalformedBody() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/")
	rec := s.do(req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCreateValidatesHouseholdSize() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/", map[string]any{
		"household_size": 0,
	})
	rec := s.do(req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestPaperIntakeAttachesProofsInOnePass() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/paper", map[string]any{
		"household_size":      3,
		"annual_income_cents": 800_000,
		"proofs": []map[string]any{
			{
				"proof_type":   "income",
				"status":       "approved",
				"filename":     "paystub-scan.pdf",
				"content_type": "application/pdf",
				"document":     base64.StdEncoding.EncodeToString([]byte("scan 1")),
			},
			{
				"proof_type": "residency",
				"status":     "rejected",
			},
		},
	})
	rec := s.do(req)

	s.Equal(http.StatusCreated, rec.Code)
	body := testutil.DecodeJSON(s.T(), rec)
	s.Equal(string(models.SubmissionPaper), body["submission_method"])
	s.Equal(string(models.ProofStatusApproved), body["income_proof_status"])
	s.Equal(string(models.ProofStatusRejected), body["residency_proof_status"])
}

func (s *HandlerSuite) TestPaperIntakeRejectsApprovalWithoutDocument() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/paper", map[string]any{
		"household_size": 1,
		"proofs": []map[string]any{
			{"proof_type": "income", "status": "approved"},
		},
	})
	rec := s.do(req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestGetApplication() {
	created := s.createApplication()

	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/"+created))
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(created, testutil.DecodeJSON(s.T(), rec)["id"])
}

func (s *HandlerSuite) TestGetUnknownApplication() {
	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/"+id.NewApplicationID().String()))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestGetInvalidID() {
	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/not-a-uuid"))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestAttachProof() {
	created := s.createApplication()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/"+created+"/proofs/income", map[string]any{
		"filename":     "paystub.pdf",
		"content_type": "application/pdf",
		"document":     base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 paystub")),
	})
	rec := s.do(req)

	s.Equal(http.StatusOK, rec.Code)
	body := testutil.DecodeJSON(s.T(), rec)
	s.Equal(string(models.ProofStatusNotReviewed), body["income_proof_status"])
}

func (s *HandlerSuite) TestAttachProofRejectsBadBase64() {
	created := s.createApplication()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/"+created+"/proofs/income", map[string]any{
		"filename": "paystub.pdf",
		"document": "not//valid==base64!!",
	})
	rec := s.do(req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestReviewProofRejection() {
	created := s.createApplication()

	attachReq := testutil.NewJSONRequest(s.T(), http.MethodPost, "/"+created+"/proofs/residency", map[string]any{
		"filename": "lease.pdf",
		"document": base64.StdEncoding.EncodeToString([]byte("lease")),
	})
	s.Equal(http.StatusOK, s.do(attachReq).Code)

	reviewReq := testutil.NewJSONRequest(s.T(), http.MethodPost, "/"+created+"/proofs/residency/review", map[string]any{
		"decision":    "rejected",
		"reason_code": "expired",
		"reason":      "lease ended last year",
	})
	rec := s.do(reviewReq)

	s.Equal(http.StatusOK, rec.Code)
	body := testutil.DecodeJSON(s.T(), rec)
	s.Equal("rejected", body["decision"])
	s.Equal("expired", body["rejection_reason_code"])
}

func (s *HandlerSuite) TestTransition() {
	created := s.createApplication()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/"+created+"/transition", map[string]any{
		"status": "needs_information",
		"reason": "missing utility bill",
	})
	rec := s.do(req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(string(models.StatusNeedsInformation), testutil.DecodeJSON(s.T(), rec)["status"])
}

func (s *HandlerSuite) TestTransitionToApprovedRequiresProofs() {
	created := s.createApplication()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/"+created+"/transition", map[string]any{
		"status": "approved",
	})
	rec := s.do(req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestRequestCertification() {
	created := s.createApplication()

	rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/"+created+"/certification/request", map[string]any{}))
	s.Equal(http.StatusAccepted, rec.Code)
	body := testutil.DecodeJSON(s.T(), rec)
	s.Equal(string(models.CertificationRequested), body["certification_status"])
	s.Equal(string(models.SigningSent), body["signing_status"])
}

func (s *HandlerSuite) TestAuditTrail() {
	created := s.createApplication()

	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/"+created+"/audit"))
	s.Equal(http.StatusOK, rec.Code)
	body := testutil.DecodeJSON(s.T(), rec)
	s.NotEmpty(body["events"])
}

func (s *HandlerSuite) createApplication() string {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/", map[string]any{
		"household_size":      2,
		"annual_income_cents": 1_200_000,
	})
	rec := s.do(req)
	s.Require().Equal(http.StatusCreated, rec.Code)
	return testutil.DecodeJSON(s.T(), rec)["id"].(string)
}
