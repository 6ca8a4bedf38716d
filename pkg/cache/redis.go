package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobtrail/jobtrail/pkg/types"
)

type RedisCache struct {
	cli redis.UniversalClient
}

func NewRedisCache(cli redis.UniversalClient) *RedisCache {
	return &RedisCache{cli: cli}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	res, err := c.cli.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return res, err
}

func (c *RedisCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	return c.cli.SetEx(ctx, key, value, expiresAt).Err()
}

func (c *RedisCache) SetNX(ctx context.Context, key, value string, expiresAt time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, expiresAt).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.cli.Del(ctx, key).Err()
}

func (c *RedisCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.cli.Expire(ctx, key, expiration).Err()
}

var _ types.Cache = (*RedisCache)(nil)
