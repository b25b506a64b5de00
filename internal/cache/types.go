package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rahl-ai/rahl-core/internal/fusion"
)

// ErrCacheMiss is returned by Get for an unknown or expired key.
var ErrCacheMiss = errors.New("cache miss")

// #region cache
// Cache stores results for offline retrieval.
type Cache interface {
	// Register prepares the backing store. It must succeed before Put or Get.
	Register(ctx context.Context) error
	Put(ctx context.Context, key string, res fusion.Result) error
	Get(ctx context.Context, key string) (fusion.Result, error)
	// Prune removes entries written before the cutoff.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// #endregion cache

// #region config
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config selects and tunes the cache driver.
type Config struct {
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	Prefix        string        `mapstructure:"prefix"`
}

// DefaultConfig caches in SQLite for a week.
func DefaultConfig() Config {
	return Config{
		Driver:    DriverSQLite,
		RedisAddr: "localhost:6379",
		TTL:       7 * 24 * time.Hour,
		Prefix:    "rahl:result:",
	}
}

// #endregion config
