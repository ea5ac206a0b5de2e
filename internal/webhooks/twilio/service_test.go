package twilio

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/storage"
	"vouchsafe/internal/webhooks/dedup"
	id "vouchsafe/pkg/domain"
)

func TestMapProviderStatus(t *testing.T) {
	cases := map[string]DeliveryStatus{
		"queued":     DeliverySending,
		"processing": DeliverySending,
		"sending":    DeliverySending,
		"delivered":  DeliveryDelivered,
		"received":   DeliveryReceived,
		"no-answer":  DeliveryFailed,
		"busy":       DeliveryFailed,
		"failed":     DeliveryFailed,
		"canceled":   DeliveryFailed,
	}
	for provider, want := range cases {
		got, ok := MapProviderStatus(provider)
		assert.True(t, ok, provider)
		assert.Equal(t, want, got, provider)
	}

	_, ok := MapProviderStatus("transmitting")
	assert.False(t, ok)
}

type TwilioSuite struct {
	suite.Suite
	ctx      context.Context
	faxes    *MemoryStore
	blobs    *storage.MemoryStore
	auditLog *audit.MemoryStore
	notifier *notify.Recorder
	svc      *Service
	fax      *FaxTransmission
}

func TestTwilioSuite(t *testing.T) {
	suite.Run(t, new(TwilioSuite))
}

func (s *TwilioSuite) SetupTest() {
	s.ctx = context.Background()
	s.faxes = NewMemory()
	s.blobs = storage.NewMemory()
	s.auditLog = audit.NewMemoryStore()
	s.notifier = notify.NewRecorder()
	logger := slog.New(slog.DiscardHandler)
	s.svc = NewService(
		s.faxes, s.blobs, dedup.NewMemory(),
		audit.NewPublisher(s.auditLog, logger),
		s.notifier,
		metrics.NewForTest(),
		logger,
	)

	s.fax = &FaxTransmission{
		FaxSid:         "FX123",
		ApplicationID:  id.NewApplicationID(),
		RecipientEmail: "dr.okafor@clinic.example",
		RecipientFax:   "+15550100",
		Status:         DeliveryQueued,
		BlobKey:        "faxes/FX123.pdf",
	}
	s.Require().NoError(s.faxes.Create(s.ctx, s.fax))
	s.Require().NoError(s.blobs.Put(s.ctx, storage.Blob{Key: s.fax.BlobKey, Data: []byte("form")}))
}

func (s *TwilioSuite) TestProgressCallback() {
	s.Require().NoError(s.svc.RecordStatus(s.ctx, Callback{FaxSid: "FX123", Status: "sending"}))

	stored, err := s.faxes.FindBySid(s.ctx, "FX123")
	s.Require().NoError(err)
	s.Equal(DeliverySending, stored.Status)
	s.Equal(1, s.auditLog.CountByAction(audit.EventFaxStatusChanged))
}

func (s *TwilioSuite) TestDeliveredIsTerminalWithoutFallback() {
	s.Require().NoError(s.svc.RecordStatus(s.ctx, Callback{FaxSid: "FX123", Status: "delivered"}))

	stored, err := s.faxes.FindBySid(s.ctx, "FX123")
	s.Require().NoError(err)
	s.Equal(DeliveryDelivered, stored.Status)
	s.Equal(0, s.notifier.CountByType("fax_failed_fallback"))
	s.Equal(1, s.blobs.Len())
}

func (s *TwilioSuite) TestFailureSendsExactlyOneFallback() {
	s.Require().NoError(s.svc.RecordStatus(s.ctx, Callback{FaxSid: "FX123", Status: "no-answer"}))
	// Provider retries the terminal callback, and a second failure flavor
	// arrives for good measure.
	s.Require().NoError(s.svc.RecordStatus(s.ctx, Callback{FaxSid: "FX123", Status: "no-answer"}))
	s.Require().NoError(s.svc.RecordStatus(s.ctx, Callback{FaxSid: "FX123", Status: "failed"}))

	s.Equal(1, s.notifier.CountByType("fax_failed_fallback"))
	s.Equal(1, s.auditLog.CountByAction(audit.EventFaxFallbackEmail))

	// The email carries a display name derived from the recipient address.
	events := s.notifier.Events()
	s.Require().NotEmpty(events)
	fallback := events[len(events)-1]
	s.Equal("dr.okafor@clinic.example", fallback.Metadata["recipient_email"])
	s.Equal("Dr Okafor", fallback.Metadata["recipient_name"])

	// The queued document is purged once the transmission is dead.
	s.Equal(0, s.blobs.Len())
}

func (s *TwilioSuite) TestCallbackAfterTerminalIsNoOp() {
	s.Require().NoError(s.svc.RecordStatus(s.ctx, Callback{FaxSid: "FX123", Status: "delivered"}))
	s.Require().NoError(s.svc.RecordStatus(s.ctx, Callback{FaxSid: "FX123", Status: "failed"}))

	stored, err := s.faxes.FindBySid(s.ctx, "FX123")
	s.Require().NoError(err)
	s.Equal(DeliveryDelivered, stored.Status)
	s.Equal(0, s.notifier.CountByType("fax_failed_fallback"))
}

func (s *TwilioSuite) TestUnknownSidAcknowledged() {
	s.Require().NoError(s.svc.RecordStatus(s.ctx, Callback{FaxSid: "FX999", Status: "delivered"}))
}

func (s *TwilioSuite) TestHandlerParsesForm() {
	handler := NewHandler(s.svc, slog.New(slog.DiscardHandler))

	form := url.Values{"FaxSid": {"FX123"}, "FaxStatus": {"delivered"}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/fax_status",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	stored, err := s.faxes.FindBySid(s.ctx, "FX123")
	s.Require().NoError(err)
	s.Equal(DeliveryDelivered, stored.Status)
}

func (s *TwilioSuite) TestHandlerRejectsMissingFields() {
	handler := NewHandler(s.svc, slog.New(slog.DiscardHandler))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/fax_status",
		strings.NewReader("FaxStatus=delivered"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}
