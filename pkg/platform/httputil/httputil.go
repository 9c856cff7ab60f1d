// Package httputil maps domain errors onto HTTP responses so handlers stay
// free of status-code switch statements.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "roster/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:   http.StatusBadRequest,
	dErrors.CodeValidation:   http.StatusBadRequest,
	dErrors.CodeConflict:     http.StatusConflict,
	dErrors.CodeNotFound:     http.StatusNotFound,
	dErrors.CodeUnauthorized: http.StatusUnauthorized,
	dErrors.CodeForbidden:    http.StatusForbidden,
	dErrors.CodeUnavailable:  http.StatusBadGateway,
	dErrors.CodeInternal:     http.StatusInternalServerError,
}

// WriteError writes a JSON error response derived from the error's code.
// Internal errors omit the description so infrastructure details never reach
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = err.Error()
	}
	WriteJSON(w, status, body)
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
