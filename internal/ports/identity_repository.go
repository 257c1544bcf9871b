package ports

import (
	"context"
	"time"

	"marketplace-integration-layer/internal/domain"
)

// IdentityRepository defines the interface for integration identity persistence.
// Lookups return nil, nil when nothing matches.
type IdentityRepository interface {
	// Upsert creates or updates the identity keyed by marketplace user and variant
	Upsert(ctx context.Context, input domain.UpsertIdentityInput) (*domain.IntegrationIdentity, error)

	// GetByClaim retrieves the single identity holding an extended claim
	GetByClaim(ctx context.Context, claim string) (*domain.IntegrationIdentity, error)

	// GetByUser retrieves an identity by marketplace user id and variant
	GetByUser(ctx context.Context, marketplaceUserID string, variant domain.IntegrationVariant) (*domain.IntegrationIdentity, error)

	// AttachSecret stores the encrypted shared secret and session token on the identity holding claim
	AttachSecret(ctx context.Context, claim, sessionToken, encryptedSecret string) error

	// SetActivationState moves the identity holding claim to a new activation state
	SetActivationState(ctx context.Context, claim string, state domain.ActivationState) error

	// RecordLogin stores the login timestamp for the identity holding claim
	RecordLogin(ctx context.Context, claim string, at time.Time) error
}
