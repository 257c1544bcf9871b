package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

// IntegrationConfig holds the orchestrator settings
type IntegrationConfig struct {
	AppURL            string
	ActivationScripts []string
	MaxSkew           time.Duration
	ReplayTTL         time.Duration
}

// IntegrationService runs the activation, login, order and snapshot flows
type IntegrationService struct {
	identityRepo ports.IdentityRepository
	credentials  *CredentialsService
	gateway      ports.MarketplaceGateway
	snapshots    ports.SnapshotService
	billing      ports.BillingClient
	replay       ports.ReplayGuard
	verifier     ports.RequestVerifier
	cfg          IntegrationConfig
	now          func() time.Time
	logger       zerolog.Logger
}

// NewIntegrationService creates a new integration service
func NewIntegrationService(
	identityRepo ports.IdentityRepository,
	credentials *CredentialsService,
	gateway ports.MarketplaceGateway,
	snapshots ports.SnapshotService,
	billing ports.BillingClient,
	replay ports.ReplayGuard,
	verifier ports.RequestVerifier,
	cfg IntegrationConfig,
	logger zerolog.Logger,
) *IntegrationService {
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = 24 * time.Hour
	}
	return &IntegrationService{
		identityRepo: identityRepo,
		credentials:  credentials,
		gateway:      gateway,
		snapshots:    snapshots,
		billing:      billing,
		replay:       replay,
		verifier:     verifier,
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
	}
}

// RenderActivationInput represents the verified activation iframe query
type RenderActivationInput struct {
	Variant          domain.IntegrationVariant
	UserID           string
	APIToken         string
	ParameterCacheID string
	ExtendedClaim    string
}

// RenderActivationPayload upserts the identity and builds the provider data for the activation view
func (s *IntegrationService) RenderActivationPayload(ctx context.Context, input RenderActivationInput) (*domain.ActivationPayload, error) {
	if input.UserID == "" {
		return nil, domain.NewValidationError(domain.FieldUserID, "is required")
	}

	identity, err := s.identityRepo.Upsert(ctx, domain.UpsertIdentityInput{
		MarketplaceUserID: input.UserID,
		Variant:           input.Variant,
		SessionToken:      input.APIToken,
		ExtendedClaim:     input.ExtendedClaim,
		Parameters: map[string]string{
			domain.ParamParameterCacheID: input.ParameterCacheID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert identity: %w", err)
	}

	providerData, err := json.Marshal(domain.ProviderData{
		Token:            input.APIToken,
		ParameterCacheID: input.ParameterCacheID,
		ExtendedClaim:    identity.ExtendedClaim,
		CallbackURL:      s.cfg.AppURL + input.Variant.RoutePrefix() + "/unlockProvider",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider data: %w", err)
	}

	s.logger.Info().Object("identity", identity).Msg("Activation payload rendered")

	return &domain.ActivationPayload{
		ProviderData: string(providerData),
		Scripts:      append([]string(nil), s.cfg.ActivationScripts...),
	}, nil
}

// UnlockProviderInput represents the unlock callback sent by the activation script
type UnlockProviderInput struct {
	Variant          domain.IntegrationVariant
	Token            string
	Secret           string
	ParameterCacheID string
	ExtendedClaim    string
}

// UnlockProvider stores the shared secret and confirms activation with the marketplace.
// It returns "active" or "error"; transport failures return domain.ErrUpstreamUnavailable.
func (s *IntegrationService) UnlockProvider(ctx context.Context, input UnlockProviderInput) (string, error) {
	switch {
	case input.Token == "":
		return "", domain.NewValidationError("token", "is required")
	case input.Secret == "":
		return "", domain.NewValidationError("secret", "is required")
	case input.ExtendedClaim == "":
		return "", domain.NewValidationError("extendedClaim", "is required")
	}

	identity, err := s.identityByClaim(ctx, input.ExtendedClaim)
	if err != nil {
		return "", err
	}
	if identity.Variant != input.Variant {
		return "", domain.ErrIdentityNotFound
	}

	logger := s.logger.With().Object("identity", identity).Logger()

	if err := s.credentials.StoreSharedSecret(ctx, input.ExtendedClaim, input.Token, input.Secret); err != nil {
		return "", err
	}
	if err := s.identityRepo.SetActivationState(ctx, input.ExtendedClaim, domain.ActivationActivating); err != nil {
		return "", fmt.Errorf("failed to set activation state: %w", err)
	}

	parameterCacheID := input.ParameterCacheID
	if parameterCacheID == "" {
		parameterCacheID = identity.Parameter(domain.ParamParameterCacheID)
	}

	resp, sendErr := s.gateway.Send(ctx, input.Token, input.Secret, domain.NewUnlockProviderAction(parameterCacheID))

	result, state := domain.ActivationResultError, domain.ActivationFailed
	if sendErr == nil && resp.Status.IsSuccess() {
		result, state = domain.ActivationResultActive, domain.ActivationActive
	}

	if err := s.identityRepo.SetActivationState(ctx, input.ExtendedClaim, state); err != nil {
		return "", fmt.Errorf("failed to set activation state: %w", err)
	}

	if sendErr != nil {
		logger.Warn().Err(sendErr).Msg("Provider unlock call failed")
		if errors.Is(sendErr, domain.ErrUpstreamUnavailable) {
			return "", sendErr
		}
		return result, nil
	}
	if state == domain.ActivationFailed {
		logger.Warn().
			Err(domain.ErrActivationRejected).
			Int("code", resp.Status.Code).
			Int("errorCode", resp.Status.ErrorCode).
			Str("message", resp.Status.Message).
			Msg("Marketplace rejected provider unlock")
		return result, nil
	}

	logger.Info().Msg("Provider unlocked")
	return result, nil
}

// LoginInput carries the verified login parameters
type LoginInput struct {
	Variant domain.IntegrationVariant
	Params  url.Values
}

// Login records the login of the identity resolved by the action gate
func (s *IntegrationService) Login(ctx context.Context, input LoginInput) (*domain.LoginResult, error) {
	identity := domain.IdentityFromContext(ctx)
	if identity == nil || identity.Variant != input.Variant {
		return nil, domain.ErrIdentityNotFound
	}

	if identity.ExtendedClaim != "" {
		if err := s.identityRepo.RecordLogin(ctx, identity.ExtendedClaim, s.now()); err != nil {
			return nil, fmt.Errorf("failed to record login: %w", err)
		}
	} else {
		s.logger.Warn().Object("identity", identity).Msg("Login for identity without claim, timestamp not recorded")
	}

	query := url.Values{}
	query.Set(domain.FieldExtendedClaim, identity.ExtendedClaim)
	query.Set("integrationType", string(identity.Variant))

	s.logger.Info().Object("identity", identity).Msg("Marketplace login")

	return &domain.LoginResult{
		RedirectURL:     s.cfg.AppURL + input.Variant.RoutePrefix() + "/app?" + query.Encode(),
		ExtendedClaim:   identity.ExtendedClaim,
		CustomerName:    strings.TrimSpace(input.Params.Get(domain.FieldCustomerName)),
		CustomerWebID:   strings.TrimSpace(input.Params.Get(domain.FieldCustomerWebID)),
		IntegrationType: identity.Variant,
	}, nil
}

// ResolveClaim returns the identity holding claim
func (s *IntegrationService) ResolveClaim(ctx context.Context, claim string) (*domain.IntegrationIdentity, error) {
	return s.identityByClaim(ctx, claim)
}

// ResolveActionIdentity finds the acting identity for a signed action request and
// returns it with its decrypted shared secret. Identities without a secret fail closed.
func (s *IntegrationService) ResolveActionIdentity(ctx context.Context, variant domain.IntegrationVariant, params url.Values) (*domain.IntegrationIdentity, string, error) {
	var (
		identity *domain.IntegrationIdentity
		err      error
	)
	if claim := domain.ClaimFromParams(params); claim != "" {
		identity, err = s.identityRepo.GetByClaim(ctx, claim)
	} else if userID := params.Get(domain.FieldUserID); userID != "" {
		identity, err = s.identityRepo.GetByUser(ctx, userID, variant)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve identity: %w", err)
	}
	if identity == nil || identity.Variant != variant {
		return nil, "", domain.ErrIdentityNotFound
	}

	secret, err := s.credentials.SharedSecret(identity)
	if err != nil {
		return nil, "", err
	}
	return identity, secret, nil
}

func (s *IntegrationService) identityByClaim(ctx context.Context, claim string) (*domain.IntegrationIdentity, error) {
	if claim == "" {
		return nil, domain.ErrIdentityNotFound
	}
	identity, err := s.identityRepo.GetByClaim(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	if identity == nil {
		return nil, domain.ErrIdentityNotFound
	}
	return identity, nil
}
