package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/infrastructure/collaborator"
	"marketplace-integration-layer/internal/infrastructure/marketplace"
	"marketplace-integration-layer/internal/infrastructure/middleware"
)

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// writeError maps the error taxonomy onto HTTP. Messages stay generic so callers
// cannot learn which part of a credential check failed.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var validation *domain.ValidationError
	var collaboratorErr *collaborator.HTTPError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validation.Error()})
	case errors.Is(err, middleware.ErrBodyTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrIdentityNotFound):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown user"})
	case errors.Is(err, domain.ErrSignatureInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request"})
	case errors.Is(err, domain.ErrNotActivated):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "integration not activated"})
	case errors.Is(err, domain.ErrClaimConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "claim already in use"})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Upstream unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "upstream unavailable", Retryable: true})
	case errors.As(err, &collaboratorErr), marketplace.IsHTTPError(err):
		logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Upstream rejected request")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "upstream rejected request"})
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
