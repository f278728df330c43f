// Package httputil maps domain errors onto JSON HTTP responses.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "pymegate/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:      http.StatusBadRequest,
	dErrors.CodeValidation:      http.StatusBadRequest,
	dErrors.CodeUnauthorized:    http.StatusUnauthorized,
	dErrors.CodeForbidden:       http.StatusForbidden,
	dErrors.CodeNotFound:        http.StatusNotFound,
	dErrors.CodeConflict:        http.StatusConflict,
	dErrors.CodeTooManyRequests: http.StatusTooManyRequests,
	dErrors.CodeExpired:         http.StatusGone,
	dErrors.CodeNotImplemented:  http.StatusNotImplemented,
	dErrors.CodeUnavailable:     http.StatusServiceUnavailable,
	dErrors.CodeInternal:        http.StatusInternalServerError,
}

var wireByCode = map[dErrors.Code]string{
	dErrors.CodeBadRequest:      "bad_request",
	dErrors.CodeValidation:      "validation_failed",
	dErrors.CodeUnauthorized:    "unauthorized",
	dErrors.CodeForbidden:       "forbidden",
	dErrors.CodeNotFound:        "not_found",
	dErrors.CodeConflict:        "conflict",
	dErrors.CodeTooManyRequests: "too_many_requests",
	dErrors.CodeExpired:         "expired",
	dErrors.CodeNotImplemented:  "not_implemented",
	dErrors.CodeUnavailable:     "unavailable",
	dErrors.CodeInternal:        "internal_error",
}

// WriteJSON serializes v with the given status. Encoding failures are
// logged, not surfaced; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

// WriteError renders err as a JSON error response. Unknown errors become
// 500s, and internal errors never leak their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: wireByCode[code]}
	if code != dErrors.CodeInternal {
		body.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, body)
}
