package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/ports"
)

type userKey struct {
	userID  string
	variant domain.IntegrationVariant
}

// MemoryIdentityRepository is an in-process IdentityRepository
type MemoryIdentityRepository struct {
	mu      sync.RWMutex
	byUser  map[userKey]*domain.IntegrationIdentity
	byClaim map[string]userKey
	now     func() time.Time
}

// NewMemoryIdentityRepository creates an empty in-memory identity store
func NewMemoryIdentityRepository() *MemoryIdentityRepository {
	return &MemoryIdentityRepository{
		byUser:  make(map[userKey]*domain.IntegrationIdentity),
		byClaim: make(map[string]userKey),
		now:     time.Now,
	}
}

var _ ports.IdentityRepository = (*MemoryIdentityRepository)(nil)

// Upsert creates or updates the identity for (marketplaceUserId, variant)
func (r *MemoryIdentityRepository) Upsert(_ context.Context, input domain.UpsertIdentityInput) (*domain.IntegrationIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := userKey{userID: input.MarketplaceUserID, variant: input.Variant}
	if input.ExtendedClaim != "" {
		if holder, ok := r.byClaim[input.ExtendedClaim]; ok && holder != key {
			return nil, domain.ErrClaimConflict
		}
	}

	now := r.now()
	identity, ok := r.byUser[key]
	if !ok {
		identity = &domain.IntegrationIdentity{
			ID:                uuid.NewString(),
			MarketplaceUserID: input.MarketplaceUserID,
			Variant:           input.Variant,
			Parameters:        make(map[string]string),
			ActivationState:   domain.ActivationPending,
			CreatedAt:         now,
		}
		r.byUser[key] = identity
	}

	// an empty claim never clears one already issued
	if input.ExtendedClaim != "" {
		if identity.ExtendedClaim != "" && identity.ExtendedClaim != input.ExtendedClaim {
			delete(r.byClaim, identity.ExtendedClaim)
		}
		identity.ExtendedClaim = input.ExtendedClaim
		r.byClaim[input.ExtendedClaim] = key
	}
	identity.SessionToken = input.SessionToken
	for k, v := range input.Parameters {
		identity.Parameters[k] = v
	}
	identity.UpdatedAt = now

	return cloneIdentity(identity), nil
}

// GetByClaim retrieves the identity holding an extended claim
func (r *MemoryIdentityRepository) GetByClaim(_ context.Context, claim string) (*domain.IntegrationIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.byClaim[claim]
	if !ok {
		return nil, nil
	}
	return cloneIdentity(r.byUser[key]), nil
}

// GetByUser retrieves an identity by marketplace user id and variant
func (r *MemoryIdentityRepository) GetByUser(_ context.Context, marketplaceUserID string, variant domain.IntegrationVariant) (*domain.IntegrationIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byUser[userKey{userID: marketplaceUserID, variant: variant}]
	if !ok {
		return nil, nil
	}
	return cloneIdentity(identity), nil
}

// AttachSecret stores the encrypted shared secret and session token
func (r *MemoryIdentityRepository) AttachSecret(_ context.Context, claim, sessionToken, encryptedSecret string) error {
	return r.update(claim, func(i *domain.IntegrationIdentity) {
		i.SessionToken = sessionToken
		i.EncryptedSecret = encryptedSecret
	})
}

// SetActivationState moves the identity to a new activation state
func (r *MemoryIdentityRepository) SetActivationState(_ context.Context, claim string, state domain.ActivationState) error {
	return r.update(claim, func(i *domain.IntegrationIdentity) {
		i.ActivationState = state
	})
}

// RecordLogin stores the last login timestamp
func (r *MemoryIdentityRepository) RecordLogin(_ context.Context, claim string, at time.Time) error {
	return r.update(claim, func(i *domain.IntegrationIdentity) {
		i.LastLoginAt = &at
	})
}

func (r *MemoryIdentityRepository) update(claim string, mutate func(*domain.IntegrationIdentity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byClaim[claim]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	identity := r.byUser[key]
	mutate(identity)
	identity.UpdatedAt = r.now()
	return nil
}

func cloneIdentity(in *domain.IntegrationIdentity) *domain.IntegrationIdentity {
	out := *in
	out.Parameters = make(map[string]string, len(in.Parameters))
	for k, v := range in.Parameters {
		out.Parameters[k] = v
	}
	if in.LastLoginAt != nil {
		at := *in.LastLoginAt
		out.LastLoginAt = &at
	}
	return &out
}
