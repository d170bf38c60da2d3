package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the byte-level key/value cache used by CachedStore.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// CachedStore is a read-through cache in front of another Store. Cache
// failures are logged and fall back to the underlying store. Lookups that
// end in ErrNotFound are not cached.
type CachedStore struct {
	next   Store
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStore(next Store, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return &CachedStore{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (s *CachedStore) FindMenuComponent(ctx context.Context, name string) (MenuComponent, error) {
	return readThrough(ctx, s, "component:"+name, func() (MenuComponent, error) {
		return s.next.FindMenuComponent(ctx, name)
	})
}

func (s *CachedStore) ListEntrees(ctx context.Context) ([]MenuComponent, error) {
	return readThrough(ctx, s, "entrees", func() ([]MenuComponent, error) {
		return s.next.ListEntrees(ctx)
	})
}

func (s *CachedStore) ListBases(ctx context.Context) ([]MenuComponent, error) {
	return readThrough(ctx, s, "bases", func() ([]MenuComponent, error) {
		return s.next.ListBases(ctx)
	})
}

func (s *CachedStore) RecipeFor(ctx context.Context, menuComponentID int64) ([]RecipeEntry, error) {
	return readThrough(ctx, s, "recipe:"+strconv.FormatInt(menuComponentID, 10), func() ([]RecipeEntry, error) {
		return s.next.RecipeFor(ctx, menuComponentID)
	})
}

func readThrough[T any](ctx context.Context, s *CachedStore, key string, load func() (T, error)) (T, error) {
	if b, err := s.cache.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		s.logger.Warn("Discarding undecodable catalog cache entry", zap.String("key", key))
	} else if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		s.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
