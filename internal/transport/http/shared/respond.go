// Package shared holds the JSON response helpers every handler uses, so
// success and error envelopes stay uniform across the API.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "staffops/pkg/domain-errors"
)

// errorEnvelope is the uniform error body: a stable machine code plus a
// human-readable description.
type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// WriteJSON writes a JSON success response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates a domain error into its HTTP response. Non-domain
// errors map to 500 with a generic message so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), errorEnvelope{
		Error:            string(code),
		ErrorDescription: dErrors.MessageOf(err),
	})
}
