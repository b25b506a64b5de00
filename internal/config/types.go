package config

import (
	"time"

	"github.com/rahl-ai/rahl-core/internal/api"
	"github.com/rahl-ai/rahl-core/internal/cache"
	"github.com/rahl-ai/rahl-core/internal/logging"
	"github.com/rahl-ai/rahl-core/internal/maintenance"
	"github.com/rahl-ai/rahl-core/internal/predict"
	"github.com/rahl-ai/rahl-core/internal/realtime"
	"github.com/rahl-ai/rahl-core/internal/security"
)

// #region config
// Config is the full application configuration.
type Config struct {
	Server      api.Config         `mapstructure:"server"`
	Inference   InferenceConfig    `mapstructure:"inference"`
	Models      ModelsConfig       `mapstructure:"models"`
	Memory      MemoryConfig       `mapstructure:"memory"`
	Predict     predict.Config     `mapstructure:"predict"`
	Storage     StorageConfig      `mapstructure:"storage"`
	Cache       cache.Config       `mapstructure:"cache"`
	Realtime    realtime.Config    `mapstructure:"realtime"`
	Log         logging.Config     `mapstructure:"log"`
	Maintenance maintenance.Config `mapstructure:"maintenance"`
	Security    security.Config    `mapstructure:"security"`
}

// InferenceConfig locates the model-serving backend.
type InferenceConfig struct {
	Addr        string        `mapstructure:"addr"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Dimension   int           `mapstructure:"dimension"`
	LoadRetries int           `mapstructure:"load_retries"`
	LoadBackoff time.Duration `mapstructure:"load_backoff"`
}

// ModelsConfig holds the source descriptor for each model kind.
type ModelsConfig struct {
	Text   string `mapstructure:"text"`
	Vision string `mapstructure:"vision"`
	Audio  string `mapstructure:"audio"`
}

// MemoryConfig sizes the context memory. Warmup is how many history rows
// are replayed into memory at startup.
type MemoryConfig struct {
	Capacity int `mapstructure:"capacity"`
	Warmup   int `mapstructure:"warmup"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// #endregion config
