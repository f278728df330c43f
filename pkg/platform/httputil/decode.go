package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "pymegate/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

type normalizer interface{ Normalize() }
type validator interface{ Validate() error }

// DecodeAndPrepare decodes the JSON body into T, then runs the request's
// Normalize and Validate hooks when present. On failure it writes the
// error response and returns ok=false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}

	if n, ok := any(&req).(normalizer); ok {
		n.Normalize()
	}
	if v, ok := any(&req).(validator); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return req, false
		}
	}
	return req, true
}
