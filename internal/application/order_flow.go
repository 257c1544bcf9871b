package application

import (
	"context"
	"fmt"
	"net/url"

	"marketplace-integration-layer/internal/domain"
)

// Rejection reasons reported on confirmation
const (
	ReasonStatusNotSuccess = "status must be success"
	ReasonUnknownUser      = "unknown user"
	ReasonNotActivated     = "integration not activated"
	ReasonSignatureInvalid = "signature invalid"
	ReasonAlreadyConfirmed = "transaction already confirmed"
)

// CreateOrder validates the order and forwards it to billing for the activated identity
func (s *IntegrationService) CreateOrder(ctx context.Context, variant domain.IntegrationVariant, order domain.Order) (*domain.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	identity, err := s.identityRepo.GetByUser(ctx, order.IntegrationUserID, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	if identity == nil {
		return nil, domain.ErrIdentityNotFound
	}
	if identity.ActivationState != domain.ActivationActive {
		return nil, domain.ErrNotActivated
	}

	response, err := s.billing.CreateOrder(ctx, identity, order)
	if err != nil {
		s.logger.Error().Err(err).Object("identity", identity).Msg("Failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().Object("identity", identity).Int("products", len(order.Products)).Msg("Order created")
	return &domain.OrderResult{State: domain.OrderCreated, Response: response}, nil
}

// ConfirmOrderInput carries the confirmation together with the request it arrived in
type ConfirmOrderInput struct {
	Variant      domain.IntegrationVariant
	Confirmation domain.OrderConfirmation
	AbsoluteURL  string
	Params       url.Values
}

// ConfirmOrder accepts a confirmation only when the status literal, signature and
// transaction id all check out. Rejections are business outcomes, not errors.
func (s *IntegrationService) ConfirmOrder(ctx context.Context, input ConfirmOrderInput) (*domain.OrderResult, error) {
	c := input.Confirmation
	if c.Status != domain.OrderStatusSuccess {
		return s.reject(c, ReasonStatusNotSuccess), nil
	}
	if c.UserID == "" {
		return nil, domain.NewValidationError("userId", "is required")
	}
	if c.TransactionID == "" {
		return nil, domain.NewValidationError("transactionid", "is required")
	}

	identity, err := s.identityRepo.GetByUser(ctx, c.UserID, input.Variant)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	if identity == nil {
		return s.reject(c, ReasonUnknownUser), nil
	}

	secret, err := s.credentials.SharedSecret(identity)
	if err != nil {
		s.logger.Warn().Err(err).Object("identity", identity).Msg("Confirmation for identity without usable secret")
		return s.reject(c, ReasonNotActivated), nil
	}

	if !domain.TimestampFresh(c.Timestamp, s.now(), s.cfg.MaxSkew) {
		return s.reject(c, ReasonSignatureInvalid), nil
	}
	if !s.verifier.VerifyRequest(secret, input.AbsoluteURL, input.Params, c.Signature) {
		return s.reject(c, ReasonSignatureInvalid), nil
	}

	first, err := s.replay.Remember(ctx, "confirm:"+string(input.Variant)+":"+c.TransactionID, s.cfg.ReplayTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to check transaction replay: %w", err)
	}
	if !first {
		return s.reject(c, ReasonAlreadyConfirmed), nil
	}

	response, err := s.billing.ConfirmOrder(ctx, identity, c)
	if err != nil {
		s.logger.Error().Err(err).Object("identity", identity).Str("transactionId", c.TransactionID).Msg("Failed to confirm order")
		return nil, fmt.Errorf("failed to confirm order: %w", err)
	}

	s.logger.Info().Object("identity", identity).Str("transactionId", c.TransactionID).Msg("Order confirmed")
	return &domain.OrderResult{
		State:         domain.OrderConfirmed,
		OrderID:       c.ReferenceID,
		TransactionID: c.TransactionID,
		Response:      response,
	}, nil
}

func (s *IntegrationService) reject(c domain.OrderConfirmation, reason string) *domain.OrderResult {
	s.logger.Warn().
		Err(domain.ErrOrderRejected).
		Str("userId", c.UserID).
		Str("transactionId", c.TransactionID).
		Str("reason", reason).
		Msg("Order confirmation rejected")
	return &domain.OrderResult{
		State:         domain.OrderRejected,
		OrderID:       c.ReferenceID,
		TransactionID: c.TransactionID,
		Reason:        reason,
	}
}
