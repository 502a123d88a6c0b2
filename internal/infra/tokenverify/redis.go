package tokenverify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RevocationStore answers whether a token ID has been revoked.
type RevocationStore interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisStore struct {
	client *redis.Client
}

func NewRedisClient(url string, poolSize int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	opt.PoolSize = poolSize

	client := redis.NewClient(opt)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRedisRevocationStore(client *redis.Client) RevocationStore {
	return &redisStore{client: client}
}

func (r *redisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	key := fmt.Sprintf("auth:revoked:%s", tokenID)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query redis: %w", err)
	}
	return n > 0, nil
}
