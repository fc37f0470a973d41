package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"free-shipping-bar/internal/domain"

	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error                string            `json:"error"`
	Fields               map[string]string `json:"fields,omitempty"`
	SubscriptionRequired bool              `json:"subscriptionRequired,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingParams), errors.Is(err, domain.ErrInvalidShop):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrSubscriptionRequired):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError renders err as a JSON error body. Server errors are logged and
// their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Error = "validation failed"
		body.Fields = verr.Fields
	}
	if errors.Is(err, domain.ErrSubscriptionRequired) {
		body.SubscriptionRequired = true
	}
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("Request failed")
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}
