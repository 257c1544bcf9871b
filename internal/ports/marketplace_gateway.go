package ports

import (
	"context"

	"marketplace-integration-layer/internal/domain"
)

// MarketplaceGateway sends signed actions to the marketplace action API
type MarketplaceGateway interface {
	// Send signs every action with secret and posts them addressed by token.
	// Transport failures are reported as domain.ErrUpstreamUnavailable.
	Send(ctx context.Context, token, secret string, actions ...domain.SignedMessage) (*domain.MarketplaceResponse, error)
}
