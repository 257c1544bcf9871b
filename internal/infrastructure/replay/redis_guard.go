// Package replay remembers recently seen signatures and transaction ids.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/ports"
)

const defaultPrefix = "replay"

// RedisGuard implements ReplayGuard with SET NX and a TTL
type RedisGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisGuard creates a Redis backed replay guard
func NewRedisGuard(client *redis.Client, prefix string) ports.ReplayGuard {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisGuard{client: client, prefix: prefix}
}

// Remember returns true when key was not seen within ttl
func (g *RedisGuard) Remember(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if g.client == nil {
		return false, errors.New("redis client is not configured")
	}
	ok, err := g.client.SetNX(ctx, g.prefix+":"+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: failed to record replay key: %v", domain.ErrUpstreamUnavailable, err)
	}
	return ok, nil
}
