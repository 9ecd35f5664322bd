// Package service provides helpers for building RESTful JSON APIs on top of
// chi. Handlers return a result map or an error; the toolkit renders both as
// JSON envelopes carrying a request_id field.
package service

import (
	"encoding/json"
	"net/http"
)

// APIError is an error with an associated HTTP status code. Its message is
// rendered to the client verbatim, so it must never carry internal detail.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError builds an APIError. A zero code defaults to 500.
func NewAPIError(message string, code int) *APIError {
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return &APIError{Code: code, Message: message}
}

// BadRequest builds a 400 APIError for invalid request parameters.
func BadRequest(message string) *APIError {
	return &APIError{Code: http.StatusBadRequest, Message: message}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// envelope copies the handler result and stamps the request ID onto it.
// An unset request ID renders as JSON null.
func envelope(r *http.Request, result map[string]any) map[string]any {
	body := make(map[string]any, len(result)+1)
	for k, v := range result {
		body[k] = v
	}
	if id := GetRequestID(r); id != "" {
		body["request_id"] = id
	} else {
		body["request_id"] = nil
	}
	return body
}

// writeResponse renders a successful handler result.
func writeResponse(w http.ResponseWriter, r *http.Request, result map[string]any) {
	writeJSON(w, http.StatusOK, envelope(r, result))
}

// writeError renders an APIError as the standard error envelope.
func writeError(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	writeJSON(w, apiErr.Code, envelope(r, map[string]any{"error": apiErr.Message}))
}
