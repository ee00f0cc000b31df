// Package httputil writes JSON responses for the HTTP API.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
)

// ErrorBody is the JSON body of every error response. Code is the engine
// error code, when there is one.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("[api] failed to encode json response: %v", err)
	}
}

// WriteJSONError writes a JSON error response with the given status code and message.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg})
}

// WriteCodedError writes err with its engine error code.
func WriteCodedError(w http.ResponseWriter, status int, err error, code string) {
	WriteJSON(w, status, ErrorBody{Error: err.Error(), Code: code})
}

// BadRequest writes a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusBadRequest, msg)
}

// ServiceUnavailable writes a 503 response.
func ServiceUnavailable(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusServiceUnavailable, msg)
}
