package application

import (
	"context"
	"errors"
	"fmt"

	"marketplace-integration-layer/internal/domain"
)

// FindSnapshotInput represents a snapshot lookup for a listing
type FindSnapshotInput struct {
	Variant       domain.IntegrationVariant
	EstateID      string
	ExtendedClaim string
}

// FindOrCreateSnapshot resolves the identity, reads the listing address and
// hands off to the snapshot service. The collaborator response is returned as is.
func (s *IntegrationService) FindOrCreateSnapshot(ctx context.Context, input FindSnapshotInput) (domain.SnapshotResponse, error) {
	if input.EstateID == "" {
		return nil, domain.NewValidationError("estateId", "is required")
	}

	identity := domain.IdentityFromContext(ctx)
	if identity == nil || (input.ExtendedClaim != "" && identity.ExtendedClaim != input.ExtendedClaim) {
		var err error
		identity, err = s.identityByClaim(ctx, input.ExtendedClaim)
		if err != nil {
			return nil, err
		}
	}
	if identity.Variant != input.Variant {
		return nil, domain.ErrIdentityNotFound
	}

	address, err := s.readEstateAddress(ctx, identity, input.EstateID)
	if err != nil {
		return nil, err
	}

	response, err := s.snapshots.FindOrCreate(ctx, domain.SnapshotRequest{
		EstateID:          input.EstateID,
		MarketplaceUserID: identity.MarketplaceUserID,
		IntegrationType:   identity.Variant,
		Address:           address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find or create snapshot: %w", err)
	}

	return response, nil
}

// readEstateAddress asks the marketplace for the listing address. Only transport
// failures abort; anything else leaves address resolution to the snapshot service.
func (s *IntegrationService) readEstateAddress(ctx context.Context, identity *domain.IntegrationIdentity, estateID string) (domain.EstateAddress, error) {
	logger := s.logger.With().Object("identity", identity).Str("estateId", estateID).Logger()

	secret, err := s.credentials.SharedSecret(identity)
	if errors.Is(err, domain.ErrNotActivated) {
		logger.Warn().Msg("Identity not activated, skipping estate read")
		return domain.EstateAddress{}, nil
	}
	if err != nil {
		return domain.EstateAddress{}, err
	}

	resp, err := s.gateway.Send(ctx, identity.SessionToken, secret, domain.NewReadEstateAction(estateID))
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return domain.EstateAddress{}, err
		}
		logger.Warn().Err(err).Msg("Estate read failed")
		return domain.EstateAddress{}, nil
	}
	if !resp.Status.IsSuccess() {
		logger.Warn().Int("code", resp.Status.Code).Int("errorCode", resp.Status.ErrorCode).Msg("Marketplace rejected estate read")
		return domain.EstateAddress{}, nil
	}

	address, err := domain.EstateAddressFromResponse(resp)
	if err != nil {
		logger.Warn().Err(err).Msg("Estate response carried no address")
		return domain.EstateAddress{}, nil
	}
	return address, nil
}
