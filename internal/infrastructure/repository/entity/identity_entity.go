package entity

import (
	"time"

	"marketplace-integration-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoIdentityDoc represents an integration identity in MongoDB
type MongoIdentityDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	MarketplaceUserID string             `bson:"marketplace_user_id"`
	Variant           string             `bson:"integration_variant"`
	SessionToken      string             `bson:"session_token"`
	EncryptedSecret   string             `bson:"encrypted_secret,omitempty"`
	ExtendedClaim     string             `bson:"extended_claim"`
	Parameters        map[string]string  `bson:"parameters,omitempty"`
	ActivationState   string             `bson:"activation_state"`
	LastLoginAt       *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoIdentityDoc) ToDomain() *domain.IntegrationIdentity {
	params := make(map[string]string, len(d.Parameters))
	for k, v := range d.Parameters {
		params[k] = v
	}
	return &domain.IntegrationIdentity{
		ID:                d.ID.Hex(),
		MarketplaceUserID: d.MarketplaceUserID,
		Variant:           domain.IntegrationVariant(d.Variant),
		SessionToken:      d.SessionToken,
		EncryptedSecret:   d.EncryptedSecret,
		ExtendedClaim:     d.ExtendedClaim,
		Parameters:        params,
		ActivationState:   domain.ActivationState(d.ActivationState),
		LastLoginAt:       d.LastLoginAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}
