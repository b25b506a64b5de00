package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rahl-ai/rahl-core/internal/api"
	"github.com/rahl-ai/rahl-core/internal/cache"
	"github.com/rahl-ai/rahl-core/internal/engine"
	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/logging"
	"github.com/rahl-ai/rahl-core/internal/maintenance"
	"github.com/rahl-ai/rahl-core/internal/memory"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/predict"
	"github.com/rahl-ai/rahl-core/internal/realtime"
	"github.com/rahl-ai/rahl-core/internal/registry"
	"github.com/rahl-ai/rahl-core/internal/security"
)

// EnvPrefix prefixes every environment override, e.g. RAHL_SERVER_ADDR.
const EnvPrefix = "RAHL"

// #region defaults
// Default returns the configuration used when no file or env override is set.
func Default() *Config {
	return &Config{
		Server: api.DefaultConfig(),
		Inference: InferenceConfig{
			Addr:        "localhost:50051",
			LoadTimeout: 2 * time.Minute,
			CallTimeout: 30 * time.Second,
			Dimension:   fusion.DefaultConfig().Dimension,
			LoadRetries: registry.DefaultConfig().LoadRetries,
			LoadBackoff: registry.DefaultConfig().LoadBackoff,
		},
		Models: ModelsConfig{
			Text:   "https://tfhub.dev/tensorflow/tfjs-model/universal-sentence-encoder/1",
			Vision: "https://tfhub.dev/tensorflow/tfjs-model/ssd_mobilenet_v2/1",
			Audio:  "https://tfhub.dev/google/yamnet/1",
		},
		Memory:      MemoryConfig{Capacity: memory.DefaultCapacity, Warmup: memory.DefaultCapacity},
		Predict:     predict.DefaultConfig(),
		Storage:     StorageConfig{Path: "rahl.db"},
		Cache:       cache.DefaultConfig(),
		Realtime:    realtime.DefaultConfig(),
		Log:         logging.Config{Level: "info"},
		Maintenance: maintenance.DefaultConfig(),
		Security:    security.DefaultConfig(),
	}
}

// setDefaults registers every key so env overrides apply even when the
// file omits the key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.burst", d.Server.Burst)
	v.SetDefault("server.locale", d.Server.Locale)

	v.SetDefault("inference.addr", d.Inference.Addr)
	v.SetDefault("inference.load_timeout", d.Inference.LoadTimeout)
	v.SetDefault("inference.call_timeout", d.Inference.CallTimeout)
	v.SetDefault("inference.dimension", d.Inference.Dimension)
	v.SetDefault("inference.load_retries", d.Inference.LoadRetries)
	v.SetDefault("inference.load_backoff", d.Inference.LoadBackoff)

	v.SetDefault("models.text", d.Models.Text)
	v.SetDefault("models.vision", d.Models.Vision)
	v.SetDefault("models.audio", d.Models.Audio)

	v.SetDefault("memory.capacity", d.Memory.Capacity)
	v.SetDefault("memory.warmup", d.Memory.Warmup)

	v.SetDefault("predict.top_k", d.Predict.TopK)
	v.SetDefault("predict.hint_boost", d.Predict.HintBoost)

	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.prefix", d.Cache.Prefix)

	v.SetDefault("realtime.url", d.Realtime.URL)
	v.SetDefault("realtime.reconnect_delay", d.Realtime.ReconnectDelay)
	v.SetDefault("realtime.write_timeout", d.Realtime.WriteTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("maintenance.prune_schedule", d.Maintenance.PruneSchedule)
	v.SetDefault("maintenance.retain_days", d.Maintenance.RetainDays)

	v.SetDefault("security.key_path", d.Security.KeyPath)
	v.SetDefault("security.session_ttl", d.Security.SessionTTL)
	v.SetDefault("security.defaults", d.Security.Defaults)
}

// #endregion defaults

// #region load
// Load reads configuration from path, or from rahl.yaml in $HOME/.rahl or the
// working directory when path is empty, then applies RAHL_* environment
// overrides. A .env file in the working directory is loaded first if present.
// A missing search-path file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rahl")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.rahl")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// #endregion load

// #region validate
// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Models.Text == "" || c.Models.Vision == "" || c.Models.Audio == "" {
		errs = append(errs, errors.New("models: text, vision and audio sources are required"))
	}
	if c.Memory.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("memory.capacity must be positive, got %d", c.Memory.Capacity))
	}
	if c.Inference.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("inference.dimension must be positive, got %d", c.Inference.Dimension))
	}
	if c.Inference.Addr == "" {
		errs = append(errs, errors.New("inference.addr is required"))
	}
	switch c.Cache.Driver {
	case cache.DriverSQLite, cache.DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q is not one of sqlite, redis", c.Cache.Driver))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion validate

// #region component-configs
// EngineConfig maps the model sections onto the engine's load plan.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Sources: map[modality.ModelKind]string{
			modality.KindText:   c.Models.Text,
			modality.KindVision: c.Models.Vision,
			modality.KindAudio:  c.Models.Audio,
		},
		Fusion: fusion.Config{Dimension: c.Inference.Dimension},
		Warmup: c.Memory.Warmup,
	}
}

// RegistryConfig returns the model load retry policy.
func (c *Config) RegistryConfig() registry.Config {
	return registry.Config{LoadRetries: c.Inference.LoadRetries, LoadBackoff: c.Inference.LoadBackoff}
}

// #endregion component-configs
