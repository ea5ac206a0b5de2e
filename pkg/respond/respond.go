// Package respond writes JSON responses and maps coded domain errors onto
// HTTP statuses in one place so handlers never pick status codes ad hoc.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "vouchsafe/pkg/domain-errors"
)

// JSON writes a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error translates a coded domain error into an HTTP response. Internal
// errors are masked; the cause goes to the log, not the client.
func Error(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)
	message := dErrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		message = "internal error"
	}
	JSON(w, status, errorBody{Error: message, Code: string(code)})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
