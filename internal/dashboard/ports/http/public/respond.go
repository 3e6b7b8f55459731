package public

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, errorResponse{Detail: message})
}

// RespondWithServiceError maps domain errors to HTTP statuses.
func RespondWithServiceError(w http.ResponseWriter, err error) {
	RespondWithError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrInvalidAmount),
		errors.Is(err, entities.ErrUnsupportedCurrency):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrRateUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		slog.Error("unexpected service error", "error", err)
		return http.StatusInternalServerError
	}
}
