package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"marketplace-integration-layer/internal/domain"
)

// ClaimResolver resolves an extended claim to its identity
type ClaimResolver interface {
	ResolveClaim(ctx context.Context, claim string) (*domain.IntegrationIdentity, error)
}

// IdentityResolutionFromClaim reads extendedClaim (or the legacy apiClaim) from the
// JSON body and attaches the matching identity to the context. Requests without a
// resolvable claim get 400 "unknown user" and never reach the handler.
func IdentityResolutionFromClaim(resolver ClaimResolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claim, err := claimFromBody(r)
			if errors.Is(err, ErrBodyTooLarge) {
				respondError(w, http.StatusRequestEntityTooLarge, err.Error())
				return
			}
			if err != nil || claim == "" {
				respondError(w, http.StatusBadRequest, "unknown user")
				return
			}

			identity, err := resolver.ResolveClaim(r.Context(), claim)
			if err != nil || identity == nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Claim did not resolve")
				respondError(w, http.StatusBadRequest, "unknown user")
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithIdentity(r.Context(), identity)))
		})
	}
}

func claimFromBody(r *http.Request) (string, error) {
	body, err := bufferBody(r)
	if err != nil || len(body) == 0 {
		return "", err
	}
	var claims struct {
		ExtendedClaim string `json:"extendedClaim"`
		APIClaim      string `json:"apiClaim"`
	}
	if err := json.Unmarshal(body, &claims); err != nil {
		return "", err
	}
	if claims.ExtendedClaim != "" {
		return claims.ExtendedClaim, nil
	}
	return claims.APIClaim, nil
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
