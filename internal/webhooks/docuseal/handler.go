package docuseal

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
)

// maxPayloadSize caps webhook bodies at 1 MiB.
const maxPayloadSize = 1 << 20

// Handler receives provider webhooks over HTTP. Processed and replayed
// deliveries are both acknowledged with 200 so the provider stops retrying;
// only a bad signature or an unreadable payload is refused.
type Handler struct {
	service *Service
	secret  string
	logger  *slog.Logger
}

// NewHandler creates the webhook HTTP handler.
func NewHandler(service *Service, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{service: service, secret: webhookSecret, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		http.Error(w, "unreadable payload", http.StatusBadRequest)
		return
	}

	if !VerifySignature(h.secret, body, r.Header.Get("X-Docuseal-Signature")) {
		h.logger.WarnContext(r.Context(), "webhook signature mismatch", "provider", "docuseal")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	payload, err := ParsePayload(bytes.NewReader(body))
	if err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	if err := h.service.Process(r.Context(), payload); err != nil {
		h.logger.ErrorContext(r.Context(), "webhook processing failed",
			"provider", "docuseal", "error", err)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
