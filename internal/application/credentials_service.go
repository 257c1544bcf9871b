package application

import (
	"context"
	"fmt"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

// CredentialsService handles the per-identity shared secret
type CredentialsService struct {
	identityRepo  ports.IdentityRepository
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
}

// NewCredentialsService creates a new credentials service
func NewCredentialsService(
	identityRepo ports.IdentityRepository,
	encryptionService ports.EncryptionService,
	logger zerolog.Logger,
) *CredentialsService {
	return &CredentialsService{
		identityRepo:  identityRepo,
		encryptionSvc: encryptionService,
		logger:        logger,
	}
}

// StoreSharedSecret encrypts the secret and attaches it, with the session token,
// to the identity holding claim. A previous secret is overwritten.
func (s *CredentialsService) StoreSharedSecret(ctx context.Context, claim, sessionToken, secret string) error {
	encrypted, err := s.encryptionSvc.Encrypt(secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt shared secret: %w", err)
	}

	if err := s.identityRepo.AttachSecret(ctx, claim, sessionToken, encrypted); err != nil {
		return fmt.Errorf("failed to attach shared secret: %w", err)
	}

	s.logger.Info().Msg("Shared secret stored")
	return nil
}

// SharedSecret decrypts the identity's shared secret.
// Identities that were never activated yield domain.ErrNotActivated.
func (s *CredentialsService) SharedSecret(identity *domain.IntegrationIdentity) (string, error) {
	if !identity.HasSecret() {
		return "", domain.ErrNotActivated
	}

	secret, err := s.encryptionSvc.Decrypt(identity.EncryptedSecret)
	if err != nil {
		s.logger.Error().Err(err).Str("identityId", identity.ID).Msg("Failed to decrypt shared secret")
		return "", fmt.Errorf("failed to decrypt shared secret: %w", err)
	}
	if secret == "" {
		return "", domain.ErrNotActivated
	}

	return secret, nil
}
