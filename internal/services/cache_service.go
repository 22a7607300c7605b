package services

import (
	"context"
	"fmt"
	"time"

	"campusride/pkg/cache"
)

// CacheService is the thin caching facade the other services depend on.
// Backed by redis in production, by a map in tests.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, message interface{}) error
}

type redisCacheService struct {
	redis *cache.RedisCache
}

func NewCacheService(redis *cache.RedisCache) CacheService {
	return &redisCacheService{redis: redis}
}

func (s *redisCacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.redis.Get(ctx, key, dest)
}

func (s *redisCacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return s.redis.Set(ctx, key, value, ttl)
}

func (s *redisCacheService) Delete(ctx context.Context, keys ...string) error {
	return s.redis.Delete(ctx, keys...)
}

func (s *redisCacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	return s.redis.Publish(ctx, channel, message)
}

func activeRideKey(userID string) string {
	return fmt.Sprintf("active_ride:%s", userID)
}
