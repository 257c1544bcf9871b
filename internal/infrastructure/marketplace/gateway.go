// Package marketplace talks to the marketplace action API.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/infrastructure/metrics"
	"marketplace-integration-layer/internal/infrastructure/signature"
	"marketplace-integration-layer/internal/ports"
)

// Config configures the outbound gateway
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// HTTPError is returned for non-success answers below 500
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("marketplace returned status %d", e.StatusCode)
}

// Gateway implements MarketplaceGateway over HTTP
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
	logger     zerolog.Logger
}

var _ ports.MarketplaceGateway = (*Gateway)(nil)

// NewGateway creates a marketplace gateway
func NewGateway(cfg Config, logger zerolog.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Gateway{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		now:        time.Now,
		logger:     logger,
	}
}

// Send signs every action and posts the envelope to the marketplace
func (g *Gateway) Send(ctx context.Context, token, secret string, actions ...domain.SignedMessage) (*domain.MarketplaceResponse, error) {
	if len(actions) == 0 {
		return nil, domain.NewValidationError("actions", "at least one action is required")
	}
	resourceType := actions[0].ResourceType
	start := time.Now()
	defer func() {
		metrics.MarketplaceLatency.WithLabelValues(resourceType).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, g.httpClient.Timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		metrics.MarketplaceCalls.WithLabelValues(resourceType, "rate_limited").Inc()
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrUpstreamUnavailable, err)
	}

	envelope := domain.MarketplaceEnvelope{Token: token}
	envelope.Request.Actions = make([]domain.SignedMessage, 0, len(actions))
	for _, action := range actions {
		envelope.Request.Actions = append(envelope.Request.Actions, g.sign(secret, token, action))
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode marketplace request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create marketplace request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		metrics.MarketplaceCalls.WithLabelValues(resourceType, "transport_error").Inc()
		g.logger.Warn().Err(err).Str("resourceType", resourceType).Msg("Marketplace call failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.MarketplaceCalls.WithLabelValues(resourceType, "transport_error").Inc()
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		metrics.MarketplaceCalls.WithLabelValues(resourceType, "server_error").Inc()
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		metrics.MarketplaceCalls.WithLabelValues(resourceType, "client_error").Inc()
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: payload}
	}

	var result domain.MarketplaceResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		metrics.MarketplaceCalls.WithLabelValues(resourceType, "bad_response").Inc()
		return nil, fmt.Errorf("failed to decode marketplace response: %w", err)
	}

	outcome := "ok"
	if !result.Status.IsSuccess() {
		outcome = "rejected"
	}
	metrics.MarketplaceCalls.WithLabelValues(resourceType, outcome).Inc()
	g.logger.Debug().
		Str("resourceType", resourceType).
		Int("statusCode", result.Status.Code).
		Int("errorCode", result.Status.ErrorCode).
		Msg("Marketplace call completed")

	return &result, nil
}

func (g *Gateway) sign(secret, token string, action domain.SignedMessage) domain.SignedMessage {
	if action.Timestamp == 0 {
		action.Timestamp = g.now().Unix()
	}
	if action.Parameters == nil {
		action.Parameters = map[string]any{}
	}
	action.MAC = signature.Sign(secret, action.Timestamp, token, action.ResourceType, action.ActionID)
	action.MACVersion = domain.MACVersion
	return action
}

// IsHTTPError reports whether err carries a marketplace HTTPError
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}
