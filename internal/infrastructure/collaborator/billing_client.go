package collaborator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/ports"
)

// BillingClient calls the order/payment service
type BillingClient struct {
	client jsonClient
}

var _ ports.BillingClient = (*BillingClient)(nil)

type billingCustomer struct {
	IdentityID        string                    `json:"identityId"`
	MarketplaceUserID string                    `json:"integrationUserId"`
	IntegrationType   domain.IntegrationVariant `json:"integrationType"`
}

type createOrderRequest struct {
	Customer billingCustomer `json:"customer"`
	Order    domain.Order    `json:"order"`
}

type confirmOrderRequest struct {
	Customer     billingCustomer          `json:"customer"`
	Confirmation domain.OrderConfirmation `json:"confirmation"`
}

// NewBillingClient creates a billing service client
func NewBillingClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *BillingClient {
	return &BillingClient{client: newJSONClient(baseURL, timeout, logger)}
}

// CreateOrder forwards a validated order
func (c *BillingClient) CreateOrder(ctx context.Context, identity *domain.IntegrationIdentity, order domain.Order) (json.RawMessage, error) {
	return c.client.post(ctx, "/orders", createOrderRequest{Customer: customerOf(identity), Order: order})
}

// ConfirmOrder forwards a verified confirmation
func (c *BillingClient) ConfirmOrder(ctx context.Context, identity *domain.IntegrationIdentity, confirmation domain.OrderConfirmation) (json.RawMessage, error) {
	confirmation.Signature = ""
	return c.client.post(ctx, "/orders/confirm", confirmOrderRequest{Customer: customerOf(identity), Confirmation: confirmation})
}

func customerOf(identity *domain.IntegrationIdentity) billingCustomer {
	return billingCustomer{
		IdentityID:        identity.ID,
		MarketplaceUserID: identity.MarketplaceUserID,
		IntegrationType:   identity.Variant,
	}
}
