package docuseal

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applicationstore "vouchsafe/internal/application/store/application"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/metrics"
	"vouchsafe/internal/storage"
	"vouchsafe/internal/webhooks/dedup"
)

func newTestHandler(secret string) *Handler {
	logger := slog.New(slog.DiscardHandler)
	svc := NewService(
		applicationstore.NewMemory(),
		storage.NewMemory(),
		dedup.NewMemory(),
		&fakeDownloader{},
		audit.NewPublisher(audit.NewMemoryStore(), logger),
		notify.NewRecorder(),
		metrics.NewForTest(),
		logger,
	)
	return NewHandler(svc, secret, logger)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHandlerAcknowledgesSignedDelivery(t *testing.T) {
	handler := newTestHandler("hook-secret")
	body := []byte(`{"event_type":"form.completed","data":{"submission_id":12,"documents":[]}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/docuseal", bytes.NewReader(body))
	req.Header.Set("X-Docuseal-Signature", sign("hook-secret", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Unknown submissions are still acknowledged so the provider stops
	// retrying.
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	handler := newTestHandler("hook-secret")
	body := []byte(`{"event_type":"form.completed","data":{}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/docuseal", bytes.NewReader(body))
	req.Header.Set("X-Docuseal-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerRejectsMalformedPayload(t *testing.T) {
	handler := newTestHandler("")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/docuseal", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
