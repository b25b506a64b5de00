package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rahl-ai/rahl-core/internal/fusion"
)

// #region redis-cache
// RedisCache stores results as JSON strings with a TTL. Expiry is left to
// Redis, so Prune has nothing to do.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis creates a client; nothing is dialed until Register.
func NewRedis(cfg Config) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisCache{rdb: rdb, ttl: cfg.TTL, prefix: cfg.Prefix}
}

// Register checks that Redis is reachable.
func (c *RedisCache) Register(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Put(ctx context.Context, key string, res fusion.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (fusion.Result, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fusion.Result{}, fmt.Errorf("%s: %w", key, ErrCacheMiss)
	}
	if err != nil {
		return fusion.Result{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	var res fusion.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return fusion.Result{}, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return res, nil
}

func (c *RedisCache) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// #endregion redis-cache
