package services

import (
	"context"
	"time"

	"ridepair/pkg/cache"
)

// CacheService is the part of the cache the services depend on. RedisCache
// backs it in production; MemoryCache when Redis is not configured.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	IncrementWithin(ctx context.Context, key string, window time.Duration) (int64, error)

	SAdd(ctx context.Context, key string, members ...interface{}) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...interface{}) error

	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, pattern string, handle func(channel string, payload []byte)) error

	Ping(ctx context.Context) error
}

var (
	_ CacheService = (*cache.RedisCache)(nil)
	_ CacheService = (*cache.MemoryCache)(nil)
)
