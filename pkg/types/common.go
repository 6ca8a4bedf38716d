package types

import (
	"context"
	"time"
)

const (
	NO_PAGING     uint64 = 0
	NO_PAGINATION uint64 = 0
)

// Cache is the minimal key-value contract the chat core needs.
// Backed by redis in deployment, by a local map in tests and single-node setups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key, value string, expire time.Duration) error
	SetNX(ctx context.Context, key, value string, expire time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, expiration time.Duration) error
}
