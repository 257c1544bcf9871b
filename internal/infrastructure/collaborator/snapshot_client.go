package collaborator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/ports"
)

// SnapshotClient calls the snapshot/search service
type SnapshotClient struct {
	client jsonClient
}

var _ ports.SnapshotService = (*SnapshotClient)(nil)

// NewSnapshotClient creates a snapshot service client
func NewSnapshotClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *SnapshotClient {
	return &SnapshotClient{client: newJSONClient(baseURL, timeout, logger)}
}

// FindOrCreate returns the collaborator response unchanged
func (c *SnapshotClient) FindOrCreate(ctx context.Context, req domain.SnapshotRequest) (domain.SnapshotResponse, error) {
	return c.client.post(ctx, "/snapshots/find-or-create", req)
}
