// Package collaborator holds HTTP clients for the snapshot and billing services.
package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketplace-integration-layer/internal/domain"
)

const headerCorrelationID = "X-Correlation-ID"

// HTTPError is a non-retryable collaborator answer
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("collaborator returned status %d", e.StatusCode)
}

type jsonClient struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func newJSONClient(baseURL string, timeout time.Duration, logger zerolog.Logger) jsonClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return jsonClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// post sends body as JSON and returns the raw response body
func (c jsonClient) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	correlationID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerCorrelationID, correlationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Str("correlationId", correlationID).Msg("Collaborator call failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Str("correlationId", correlationID).Msg("Collaborator unavailable")
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: payload}
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("collaborator returned invalid JSON from %s", path)
	}

	return json.RawMessage(payload), nil
}
