package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "roster/pkg/domain-errors"
)

// Validatable is implemented by request types that validate themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes a JSON request body into T and runs its
// validation. On failure it writes the error response and returns false; the
// handler just returns.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "request body decode failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return nil, false
	}

	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}

	return &req, true
}
