package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetNXer is the subset of the go-redis client used by Redis.
// *redis.Client, *redis.ClusterClient and redis.UniversalClient satisfy it.
type SetNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis is a Store shared between verifier instances through Redis.
type Redis struct {
	client SetNXer
	prefix string
}

// NewRedis creates a Redis store. Keys are "<prefix>:<nonce>"; an empty
// prefix stores nonces as-is.
func NewRedis(client SetNXer, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(nonce string) string {
	if r.prefix == "" {
		return nonce
	}
	return r.prefix + ":" + nonce
}

func (r *Redis) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(nonce), 1, clampTTL(ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("replay: redis setnx failed: %w", err)
	}
	return ok, nil
}
