package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"marketplace-integration-layer/internal/application"
	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/infrastructure/metrics"
	"marketplace-integration-layer/internal/infrastructure/middleware"
)

// RouteAuth holds the authentication middlewares for one variant
type RouteAuth struct {
	Activation func(http.Handler) http.Handler
	Action     func(http.Handler) http.Handler
	Identity   func(http.Handler) http.Handler
}

// IntegrationHandler serves the marketplace endpoints for one integration variant
type IntegrationHandler struct {
	service *application.IntegrationService
	variant domain.IntegrationVariant
	logger  zerolog.Logger
}

// NewIntegrationHandler creates a handler bound to variant
func NewIntegrationHandler(service *application.IntegrationService, variant domain.IntegrationVariant, logger zerolog.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		service: service,
		variant: variant,
		logger:  logger.With().Str("variant", string(variant)).Logger(),
	}
}

// Routes returns the variant's router, meant to be mounted at variant.RoutePrefix()
func (h *IntegrationHandler) Routes(auth RouteAuth) chi.Router {
	r := chi.NewRouter()
	r.With(auth.Activation).Get("/activation-iframe", h.activationIframe)
	r.With(auth.Identity).Post("/unlockProvider", h.unlockProvider)
	r.With(auth.Action).Post("/login", h.login)
	r.Post("/create-order", h.createOrder)
	r.Post("/confirm-order", h.confirmOrder)
	r.With(auth.Identity).Post("/find-create-snapshot", h.findCreateSnapshot)
	return r
}

func (h *IntegrationHandler) activationIframe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload, err := h.service.RenderActivationPayload(r.Context(), application.RenderActivationInput{
		Variant:          h.variant,
		UserID:           q.Get(domain.FieldUserID),
		APIToken:         q.Get(domain.FieldAPIToken),
		ParameterCacheID: q.Get(domain.FieldParameterCacheID),
		ExtendedClaim:    domain.ClaimFromParams(q),
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to render activation payload")
		renderMessage(w, message{Title: "Activation unavailable", Detail: "The activation could not be prepared. Please try again later."})
		return
	}
	renderActivation(w, payload)
}

type unlockProviderRequest struct {
	Token            string `json:"token"`
	Secret           string `json:"secret"`
	ParameterCacheID string `json:"parameterCacheId"`
	ExtendedClaim    string `json:"extendedClaim"`
	APIClaim         string `json:"apiClaim"`
}

func (h *IntegrationHandler) unlockProvider(w http.ResponseWriter, r *http.Request) {
	var req unlockProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidationError("body", "invalid JSON"), h.logger)
		return
	}
	claim := req.ExtendedClaim
	if claim == "" {
		claim = req.APIClaim
	}

	result, err := h.service.UnlockProvider(r.Context(), application.UnlockProviderInput{
		Variant:          h.variant,
		Token:            req.Token,
		Secret:           req.Secret,
		ParameterCacheID: req.ParameterCacheID,
		ExtendedClaim:    claim,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			metrics.ActivationOutcomes.WithLabelValues(string(h.variant), "upstream_unavailable").Inc()
		}
		writeError(w, r, err, h.logger)
		return
	}

	metrics.ActivationOutcomes.WithLabelValues(string(h.variant), result).Inc()
	writeJSON(w, http.StatusOK, result)
}

func (h *IntegrationHandler) login(w http.ResponseWriter, r *http.Request) {
	params, ok := h.signedParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.Login(r.Context(), application.LoginInput{Variant: h.variant, Params: params})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *IntegrationHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, r, domain.NewValidationError("body", "invalid JSON"), h.logger)
		return
	}

	result, err := h.service.CreateOrder(r.Context(), h.variant, order)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	metrics.OrderOutcomes.WithLabelValues("create", string(result.State)).Inc()
	writeJSON(w, http.StatusOK, result)
}

func (h *IntegrationHandler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	params, ok := h.signedParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.ConfirmOrder(r.Context(), application.ConfirmOrderInput{
		Variant:      h.variant,
		Confirmation: domain.ConfirmationFromParams(params),
		AbsoluteURL:  middleware.AbsoluteURL(r),
		Params:       params,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	metrics.OrderOutcomes.WithLabelValues("confirm", string(result.State)).Inc()
	writeJSON(w, http.StatusOK, result)
}

type findSnapshotRequest struct {
	EstateID        string `json:"estateId"`
	ExtendedClaim   string `json:"extendedClaim"`
	APIClaim        string `json:"apiClaim"`
	IntegrationType string `json:"integrationType"`
}

func (h *IntegrationHandler) findCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req findSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidationError("body", "invalid JSON"), h.logger)
		return
	}
	if req.IntegrationType != "" {
		variant, err := domain.ParseIntegrationVariant(req.IntegrationType)
		if err != nil {
			writeError(w, r, err, h.logger)
			return
		}
		if variant != h.variant {
			writeError(w, r, domain.NewValidationError("integrationType", "does not match the route"), h.logger)
			return
		}
	}
	claim := req.ExtendedClaim
	if claim == "" {
		claim = req.APIClaim
	}

	response, err := h.service.FindOrCreateSnapshot(r.Context(), application.FindSnapshotInput{
		Variant:       h.variant,
		EstateID:      req.EstateID,
		ExtendedClaim: claim,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeRawJSON(w, http.StatusOK, response)
}

func (h *IntegrationHandler) signedParams(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	params, err := middleware.SignedParams(r)
	if errors.Is(err, middleware.ErrBodyTooLarge) {
		writeError(w, r, err, h.logger)
		return nil, false
	}
	if err != nil {
		writeError(w, r, domain.NewValidationError("body", "invalid request parameters"), h.logger)
		return nil, false
	}
	return params, true
}
