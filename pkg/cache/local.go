package cache

import (
	"context"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/jobtrail/jobtrail/pkg/types"
)

type localEntry struct {
	value     string
	expiresAt time.Time
}

func (e localEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// LocalCache is an in-process fallback used when no redis address is
// configured. Stream locks held here do not span processes.
type LocalCache struct {
	data cmap.ConcurrentMap[string, localEntry]
}

func NewLocalCache() *LocalCache {
	return &LocalCache{
		data: cmap.New[localEntry](),
	}
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, error) {
	entry, ok := c.data.Get(key)
	if !ok {
		return "", nil
	}
	if entry.expired() {
		c.data.Remove(key)
		return "", nil
	}
	return entry.value, nil
}

func (c *LocalCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	c.data.Set(key, newLocalEntry(value, expiresAt))
	return nil
}

func (c *LocalCache) SetNX(ctx context.Context, key, value string, expiresAt time.Duration) (bool, error) {
	acquired := true
	c.data.Upsert(key, newLocalEntry(value, expiresAt), func(exist bool, old, new localEntry) localEntry {
		if exist && !old.expired() {
			acquired = false
			return old
		}
		return new
	})
	return acquired, nil
}

func (c *LocalCache) Del(ctx context.Context, key string) error {
	c.data.Remove(key)
	return nil
}

func (c *LocalCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	c.data.Upsert(key, localEntry{}, func(exist bool, old, new localEntry) localEntry {
		if !exist {
			return new
		}
		old.expiresAt = time.Now().Add(expiration)
		return old
	})
	return nil
}

func newLocalEntry(value string, expiresAt time.Duration) localEntry {
	entry := localEntry{value: value}
	if expiresAt > 0 {
		entry.expiresAt = time.Now().Add(expiresAt)
	}
	return entry
}

var _ types.Cache = (*LocalCache)(nil)
