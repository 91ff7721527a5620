// Package redisad adapts go-redis to the domain Cache port. Values are
// stored as JSON. Availability answers and their generation keys are the
// only cached payloads; both are advisory, so a stale entry is bounded
// by its TTL.
package redisad

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"easybooking/internal/adapters/observability"
)

type Cache struct{ rdb *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// Ping verifies connectivity at boot so a misconfigured address fails
// fast instead of on the first availability read.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	observability.ObserveCache("redis", "set")
	return c.rdb.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (c *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return c.rdb.Del(ctx, key).Err()
}

func (c *Cache) Close() error { return c.rdb.Close() }
