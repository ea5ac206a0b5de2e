package twilio

import (
	"log/slog"
	"net/http"
)

// Handler receives Twilio's form-encoded fax status callbacks. Deliveries
// are always acknowledged with 200 unless the form itself is unreadable.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates the fax callback HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unreadable form", http.StatusBadRequest)
		return
	}

	cb := Callback{
		FaxSid:    r.PostFormValue("FaxSid"),
		Status:    r.PostFormValue("FaxStatus"),
		ErrorCode: r.PostFormValue("ErrorCode"),
	}
	if cb.FaxSid == "" || cb.Status == "" {
		http.Error(w, "missing FaxSid or FaxStatus", http.StatusBadRequest)
		return
	}

	if err := h.service.RecordStatus(r.Context(), cb); err != nil {
		h.logger.ErrorContext(r.Context(), "fax callback processing failed",
			"fax_sid", cb.FaxSid, "error", err)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
