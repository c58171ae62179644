package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds serialized catalog listings between feed syncs. Entries are
// scoped to a generation; Invalidate moves to a new one, so a listing read
// from the store before an invalidation and written after it is never served.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string, dst any) (bool, error)
	Set(ctx context.Context, gen int64, key string, v any) error
	Invalidate(ctx context.Context) error
}

type NopCache struct{}

func (NopCache) Generation(context.Context) (int64, error)             { return 0, nil }
func (NopCache) Get(context.Context, int64, string, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, int64, string, any) error         { return nil }
func (NopCache) Invalidate(context.Context) error                      { return nil }

// RedisCache stores listings as JSON under a common key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// NewRedisCacheFromURL parses a redis:// URL and pings the server.
func NewRedisCacheFromURL(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCache(client, "catalog:", ttl, logger), nil
}

func (r *RedisCache) key(gen int64, k string) string {
	return fmt.Sprintf("%sv%d:%s", r.prefix, gen, k)
}

func (r *RedisCache) genKey() string {
	return r.prefix + "gen"
}

// Generation returns the current cache generation, 0 before the first
// invalidation.
func (r *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RedisCache) Get(ctx context.Context, gen int64, key string, dst any) (bool, error) {
	val, err := r.client.Get(ctx, r.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("catalog cache miss", "key", key)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	r.logger.Debug("catalog cache hit", "key", key)
	return true, nil
}

func (r *RedisCache) Set(ctx context.Context, gen int64, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(gen, key), data, r.ttl).Err()
}

// Invalidate bumps the generation and drops every listing under the prefix.
func (r *RedisCache) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.genKey()).Err(); err != nil {
		return err
	}
	iter := r.client.Scan(ctx, 0, r.prefix+"v*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	r.logger.Debug("catalog cache invalidated", "keys", len(keys))
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
