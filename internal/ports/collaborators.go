package ports

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"marketplace-integration-layer/internal/domain"
)

// SnapshotService finds or computes a location snapshot for a listing
type SnapshotService interface {
	FindOrCreate(ctx context.Context, req domain.SnapshotRequest) (domain.SnapshotResponse, error)
}

// BillingClient owns order persistence and the payment exchange
type BillingClient interface {
	CreateOrder(ctx context.Context, identity *domain.IntegrationIdentity, order domain.Order) (json.RawMessage, error)
	ConfirmOrder(ctx context.Context, identity *domain.IntegrationIdentity, confirmation domain.OrderConfirmation) (json.RawMessage, error)
}

// ReplayGuard remembers keys for a limited time
type ReplayGuard interface {
	// Remember returns true the first time key is seen within ttl
	Remember(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// EncryptionService protects secrets at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// RequestVerifier checks inbound request signatures
type RequestVerifier interface {
	VerifyRequest(secret, absoluteURL string, params url.Values, candidate string) bool
}
