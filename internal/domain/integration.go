package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// IntegrationVariant identifies the marketplace channel a customer integrated through
type IntegrationVariant string

const (
	VariantShop IntegrationVariant = "SHOP"
	VariantFull IntegrationVariant = "FULL"
)

// ParseIntegrationVariant accepts the variant case-insensitively
func ParseIntegrationVariant(raw string) (IntegrationVariant, error) {
	switch IntegrationVariant(strings.ToUpper(strings.TrimSpace(raw))) {
	case VariantShop:
		return VariantShop, nil
	case VariantFull:
		return VariantFull, nil
	}
	return "", NewValidationError("integrationType", fmt.Sprintf("unknown integration variant %q", raw))
}

// RoutePrefix is the path prefix the variant's endpoints are mounted under
func (v IntegrationVariant) RoutePrefix() string {
	return "/marketplace/" + strings.ToLower(string(v))
}

// ActivationState tracks the unlock handshake with the marketplace
type ActivationState string

const (
	ActivationPending    ActivationState = "PENDING"
	ActivationActivating ActivationState = "ACTIVATING"
	ActivationActive     ActivationState = "ACTIVE"
	ActivationFailed     ActivationState = "ACTIVATION_FAILED"
)

// Well-known parameter keys stored on an identity
const (
	ParamParameterCacheID = "parameterCacheId"
	ParamCustomerName     = "customerName"
	ParamCustomerWebID    = "customerWebId"
)

// IntegrationIdentity is one marketplace customer bound to one integration variant.
// The extended claim is a capability: whoever presents it is treated as this
// identity, so it is only trusted behind a verified signature.
type IntegrationIdentity struct {
	ID                string             `json:"id" bson:"_id"`
	MarketplaceUserID string             `json:"marketplace_user_id" bson:"marketplace_user_id"`
	Variant           IntegrationVariant `json:"integration_variant" bson:"integration_variant"`
	SessionToken      string             `json:"-" bson:"session_token"`
	EncryptedSecret   string             `json:"-" bson:"encrypted_secret"` // shared secret, encrypted at rest
	ExtendedClaim     string             `json:"extended_claim" bson:"extended_claim"`
	Parameters        map[string]string  `json:"parameters" bson:"parameters"`
	ActivationState   ActivationState    `json:"activation_state" bson:"activation_state"`
	LastLoginAt       *time.Time         `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// HasSecret reports whether activation already attached a shared secret
func (i *IntegrationIdentity) HasSecret() bool {
	return i != nil && i.EncryptedSecret != ""
}

// Parameter returns a bookkeeping parameter or an empty string
func (i *IntegrationIdentity) Parameter(key string) string {
	if i == nil || i.Parameters == nil {
		return ""
	}
	return i.Parameters[key]
}

// MarshalZerologObject logs the identity without its secret or session token
func (i *IntegrationIdentity) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", i.ID).
		Str("marketplaceUserId", i.MarketplaceUserID).
		Str("variant", string(i.Variant)).
		Str("activationState", string(i.ActivationState)).
		Bool("hasSecret", i.HasSecret())
}

// UpsertIdentityInput carries the fields written when the activation iframe is rendered
type UpsertIdentityInput struct {
	MarketplaceUserID string
	Variant           IntegrationVariant
	SessionToken      string
	ExtendedClaim     string
	Parameters        map[string]string
}
