package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const identityKey contextKey = "integration_identity"

// WithIdentity attaches the resolved acting identity to the context
func WithIdentity(ctx context.Context, identity *IntegrationIdentity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity attached by the authentication pipeline
func IdentityFromContext(ctx context.Context) *IntegrationIdentity {
	if identity, ok := ctx.Value(identityKey).(*IntegrationIdentity); ok {
		return identity
	}
	return nil
}
