package http_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	apphandler "vouchsafe/internal/application/handler"
	"vouchsafe/internal/application/models"
	appservice "vouchsafe/internal/application/service"
	applicationstore "vouchsafe/internal/application/store/application"
	reviewstore "vouchsafe/internal/application/store/review"
	statuschangestore "vouchsafe/internal/application/store/statuschange"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/guardian"
	vhttp "vouchsafe/internal/http"
	"vouchsafe/internal/jwtauth"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/proofs/attach"
	"vouchsafe/internal/proofs/review"
	"vouchsafe/internal/storage"
	"vouchsafe/internal/voucher"
	"vouchsafe/internal/webhooks/dedup"
	"vouchsafe/internal/webhooks/docuseal"
	"vouchsafe/internal/webhooks/twilio"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/testutil"
)

type noSigning struct{}

func (noSigning) CreateSubmission(context.Context, *models.Application) (string, error) {
	return "sub-1", nil
}

type RouterSuite struct {
	suite.Suite
	validator *jwtauth.HMACValidator
	router    http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	m := metrics.NewForTest()
	auditor := audit.NewPublisher(audit.NewMemoryStore(), logger)
	notifier := notify.NewRecorder()
	apps := applicationstore.NewMemory()
	blobs := storage.NewMemory()
	ledger := dedup.NewMemory()

	voucherStore := voucher.NewMemory()
	voucherSvc := voucher.NewService(voucherStore, auditor, notifier, m, logger)
	guardianSvc := guardian.NewService(guardian.NewMemory(), auditor, logger)

	appSvc := appservice.New(appservice.Config{
		Applications:       apps,
		StatusChanges:      statuschangestore.NewMemory(),
		Vouchers:           voucherSvc,
		Guardian:           guardianSvc,
		Signing:            noSigning{},
		Audit:              auditor,
		Notifier:           notifier,
		Metrics:            m,
		Logger:             logger,
		WaitingPeriodYears: 3,
	})
	attacher := attach.NewService(apps, blobs, auditor, m, appSvc, logger)
	reviewer := review.NewReviewer(apps, reviewstore.NewMemory(), auditor, notifier, m, appSvc, logger)

	webhookSvc := docuseal.NewService(apps, blobs, ledger, nil, auditor, notifier, m, logger)
	faxSvc := twilio.NewService(twilio.NewMemory(), blobs, ledger, auditor, notifier, m, logger)

	s.validator = jwtauth.NewHMACValidator("router-test-secret")
	s.router = vhttp.NewRouter(vhttp.RouterConfig{
		Logger:       logger,
		Metrics:      m,
		Validator:    s.validator,
		Applications: apphandler.New(appSvc, attacher, reviewer, auditor, logger),
		Vouchers:     voucher.NewHandler(voucherSvc, voucherStore, logger),
		Guardians:    guardian.NewHandler(guardianSvc, logger),
		DocuSeal:     docuseal.NewHandler(webhookSvc, "webhook-secret", logger),
		Twilio:       twilio.NewHandler(faxSvc, logger),
	})
}

func (s *RouterSuite) TestHealthz() {
	rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestDocusealWebhookRoute() {
	// An unsigned delivery reaches the handler and is refused there, which
	// proves the mount path exists.
	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/webhooks/docuseal/medical_certification", map[string]any{"event_type": "form.completed"})
	rec := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = testutil.DoRequest(s.router,
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/webhooks/docuseal", map[string]any{}))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterSuite) TestTwilioWebhookRoute() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/webhooks/twilio/fax_status")
	rec := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestAPIRequiresBearerToken() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/applications", map[string]any{
		"household_size": 2,
	})
	rec := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestAPIAcceptsValidToken() {
	token, err := s.validator.Issue(id.NewUserID(), "constituent", time.Hour)
	s.Require().NoError(err)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/applications", map[string]any{
		"household_size":      2,
		"annual_income_cents": 1_000_000,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	rec := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusCreated, rec.Code)
}
