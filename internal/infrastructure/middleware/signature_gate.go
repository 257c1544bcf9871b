package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/infrastructure/metrics"
	"marketplace-integration-layer/internal/infrastructure/signature"
	"marketplace-integration-layer/internal/ports"
)

// ActionIdentityResolver finds the acting identity and its shared secret
type ActionIdentityResolver interface {
	ResolveActionIdentity(ctx context.Context, variant domain.IntegrationVariant, params url.Values) (*domain.IntegrationIdentity, string, error)
}

// SecretSource yields the verification key for a request. A non-nil identity
// is attached to the request context once the signature verifies.
type SecretSource func(r *http.Request, params url.Values) (string, *domain.IntegrationIdentity, error)

// GateConfig parameterizes SignatureGate
type GateConfig struct {
	Name      string
	Params    func(r *http.Request) (url.Values, error)
	Secret    SecretSource
	Replay    ports.ReplayGuard
	ReplayTTL time.Duration
	MaxSkew   time.Duration
	Fallback  http.Handler
	Now       func() time.Time
	Logger    zerolog.Logger
}

// GateOptions are shared by the gate presets
type GateOptions struct {
	Replay    ports.ReplayGuard
	ReplayTTL time.Duration
	MaxSkew   time.Duration
	Fallback  http.Handler
	Logger    zerolog.Logger
}

// SignatureGate verifies the request signature over the reconstructed absolute URL
// and the collected parameters. Any failure renders the fallback view instead of an error.
func SignatureGate(cfg GateConfig) func(http.Handler) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Fallback == nil {
		cfg.Fallback = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("signature mismatch"))
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := cfg.Logger.With().Str("gate", cfg.Name).Str("path", r.URL.Path).Logger()
			reject := func(reason string, err error) {
				metrics.SignatureChecks.WithLabelValues(cfg.Name, reason).Inc()
				logger.Warn().Err(err).Str("reason", reason).Msg("Signature check failed")
				cfg.Fallback.ServeHTTP(w, r)
			}

			params, err := cfg.Params(r)
			if errors.Is(err, ErrBodyTooLarge) {
				metrics.SignatureChecks.WithLabelValues(cfg.Name, "too_large").Inc()
				respondError(w, http.StatusRequestEntityTooLarge, err.Error())
				return
			}
			if err != nil {
				reject("malformed", err)
				return
			}

			candidate := params.Get(signature.ParamSignature)
			if candidate == "" {
				reject("missing", nil)
				return
			}
			if !domain.TimestampFresh(params.Get(domain.FieldTimestamp), cfg.Now(), cfg.MaxSkew) {
				reject("stale", nil)
				return
			}

			secret, identity, err := cfg.Secret(r, params)
			if err != nil {
				reason := "no_secret"
				if errors.Is(err, domain.ErrIdentityNotFound) {
					reason = "unknown_identity"
				}
				reject(reason, err)
				return
			}

			if !signature.VerifyRequest(secret, AbsoluteURL(r), params, candidate) {
				reject("mismatch", domain.ErrSignatureInvalid)
				return
			}

			if cfg.Replay != nil {
				first, err := cfg.Replay.Remember(r.Context(), "sig:"+cfg.Name+":"+candidate, cfg.ReplayTTL)
				if err != nil {
					metrics.SignatureChecks.WithLabelValues(cfg.Name, "upstream_unavailable").Inc()
					logger.Error().Err(err).Msg("Replay store unavailable")
					respondUnavailable(w)
					return
				}
				if !first {
					reject("replayed", nil)
					return
				}
			}

			metrics.SignatureChecks.WithLabelValues(cfg.Name, "ok").Inc()

			ctx := r.Context()
			if identity != nil {
				ctx = domain.WithIdentity(ctx, identity)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActivationSignatureCheck guards the activation iframe with the provider secret
func ActivationSignatureCheck(providerSecret string, opts GateOptions) func(http.Handler) http.Handler {
	return SignatureGate(GateConfig{
		Name:   "activation",
		Params: QueryParams,
		Secret: func(*http.Request, url.Values) (string, *domain.IntegrationIdentity, error) {
			if providerSecret == "" {
				return "", nil, domain.ErrNotActivated
			}
			return providerSecret, nil, nil
		},
		MaxSkew:  opts.MaxSkew,
		Fallback: opts.Fallback,
		Logger:   opts.Logger,
	})
}

// ActionSignatureCheck guards state-changing actions with the acting identity's shared secret
func ActionSignatureCheck(variant domain.IntegrationVariant, resolver ActionIdentityResolver, opts GateOptions) func(http.Handler) http.Handler {
	return SignatureGate(GateConfig{
		Name:   "action",
		Params: SignedParams,
		Secret: func(r *http.Request, params url.Values) (string, *domain.IntegrationIdentity, error) {
			identity, secret, err := resolver.ResolveActionIdentity(r.Context(), variant, params)
			if err != nil {
				return "", nil, err
			}
			return secret, identity, nil
		},
		Replay:    opts.Replay,
		ReplayTTL: opts.ReplayTTL,
		MaxSkew:   opts.MaxSkew,
		Fallback:  opts.Fallback,
		Logger:    opts.Logger,
	})
}

func respondUnavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": "upstream unavailable", "retryable": true})
}
