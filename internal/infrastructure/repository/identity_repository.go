package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/infrastructure/repository/entity"
	"marketplace-integration-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	identityCollection = "integration_identities"
	claimIndexName     = "extended_claim_unique"
)

// MongoIdentityRepository implements IdentityRepository using MongoDB
type MongoIdentityRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoIdentityRepository creates a new MongoDB identity repository
func NewMongoIdentityRepository(db *mongo.Database) *MongoIdentityRepository {
	return &MongoIdentityRepository{
		collection: db.Collection(identityCollection),
		timeout:    5 * time.Second,
	}
}

var _ ports.IdentityRepository = (*MongoIdentityRepository)(nil)

// EnsureIndexes creates the uniqueness constraints the store relies on
func (r *MongoIdentityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "marketplace_user_id", Value: 1}, {Key: "integration_variant", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_variant_unique"),
		},
		{
			Keys: bson.D{{Key: "extended_claim", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(claimIndexName).
				SetPartialFilterExpression(bson.M{"extended_claim": bson.M{"$type": "string", "$gt": ""}}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create identity indexes: %w", err)
	}
	return nil
}

// Upsert creates or updates the identity for (marketplaceUserId, variant).
// The encrypted secret is never written here, and an empty claim never clears an issued one.
func (r *MongoIdentityRepository) Upsert(ctx context.Context, input domain.UpsertIdentityInput) (*domain.IntegrationIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"marketplace_user_id": input.MarketplaceUserID,
		"integration_variant": string(input.Variant),
	}
	update := upsertUpdate(input, time.Now())
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc entity.MongoIdentityDoc
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) && !isClaimConflict(err) {
		// a concurrent first render inserted the same user; the retry matches it
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if isClaimConflict(err) {
		return nil, fmt.Errorf("failed to upsert identity: %w", domain.ErrClaimConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert identity: %w", err)
	}

	return doc.ToDomain(), nil
}

func upsertUpdate(input domain.UpsertIdentityInput, now time.Time) bson.M {
	set := bson.M{
		"session_token": input.SessionToken,
		"updated_at":    now,
	}
	for k, v := range input.Parameters {
		set["parameters."+k] = v
	}
	setOnInsert := bson.M{
		"_id":              primitive.NewObjectID(),
		"activation_state": string(domain.ActivationPending),
		"created_at":       now,
	}
	if input.ExtendedClaim != "" {
		set["extended_claim"] = input.ExtendedClaim
	} else {
		setOnInsert["extended_claim"] = ""
	}
	return bson.M{"$set": set, "$setOnInsert": setOnInsert}
}

// isClaimConflict reports whether err is a duplicate key on the claim index
func isClaimConflict(err error) bool {
	return mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), claimIndexName)
}

// GetByClaim retrieves the identity holding an extended claim
func (r *MongoIdentityRepository) GetByClaim(ctx context.Context, claim string) (*domain.IntegrationIdentity, error) {
	if claim == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"extended_claim": claim})
}

// GetByUser retrieves an identity by marketplace user id and variant
func (r *MongoIdentityRepository) GetByUser(ctx context.Context, marketplaceUserID string, variant domain.IntegrationVariant) (*domain.IntegrationIdentity, error) {
	return r.findOne(ctx, bson.M{
		"marketplace_user_id": marketplaceUserID,
		"integration_variant": string(variant),
	})
}

// AttachSecret stores the encrypted shared secret and session token
func (r *MongoIdentityRepository) AttachSecret(ctx context.Context, claim, sessionToken, encryptedSecret string) error {
	return r.updateByClaim(ctx, claim, bson.M{
		"session_token":    sessionToken,
		"encrypted_secret": encryptedSecret,
	})
}

// SetActivationState moves the identity to a new activation state
func (r *MongoIdentityRepository) SetActivationState(ctx context.Context, claim string, state domain.ActivationState) error {
	return r.updateByClaim(ctx, claim, bson.M{"activation_state": string(state)})
}

// RecordLogin stores the last login timestamp
func (r *MongoIdentityRepository) RecordLogin(ctx context.Context, claim string, at time.Time) error {
	return r.updateByClaim(ctx, claim, bson.M{"last_login_at": at})
}

func (r *MongoIdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.IntegrationIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc entity.MongoIdentityDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	return doc.ToDomain(), nil
}

func (r *MongoIdentityRepository) updateByClaim(ctx context.Context, claim string, set bson.M) error {
	if claim == "" {
		return domain.ErrIdentityNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	set["updated_at"] = time.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"extended_claim": claim}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}
