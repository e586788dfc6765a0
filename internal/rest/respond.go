package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the JSON shape of every error response. Reason is a stable
// machine-readable tag; Message is human-readable detail.
type ErrorBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, reason, message string) {
	JSON(w, status, ErrorBody{Reason: reason, Message: message})
}

// Decode reads the request body into v.
func Decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

var errMissingUser = errors.New("missing X-User-ID header")

// UserID extracts the authenticated user id supplied by the identity layer.
// Verification happened upstream; the core trusts the header.
func UserID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, errMissingUser
	}
	return uuid.Parse(raw)
}
