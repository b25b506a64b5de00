package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahl-ai/rahl-core/internal/cache"
	"github.com/rahl-ai/rahl-core/internal/modality"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rahl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Memory.Capacity)
	assert.Equal(t, 512, cfg.Inference.Dimension)
	assert.Equal(t, cache.DriverSQLite, cfg.Cache.Driver)
	assert.Zero(t, cfg.Inference.LoadRetries)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
memory:
  capacity: 4
cache:
  driver: redis
  ttl: 1h
models:
  text: file:///models/use
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Memory.Capacity)
	assert.Equal(t, cache.DriverRedis, cfg.Cache.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "file:///models/use", cfg.Models.Text)
	// untouched keys keep their defaults
	assert.Equal(t, Default().Models.Vision, cfg.Models.Vision)
	assert.Equal(t, Default().Server.WriteTimeout, cfg.Server.WriteTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "memory:\n  capacity: 4\n")
	t.Setenv("RAHL_MEMORY_CAPACITY", "25")
	t.Setenv("RAHL_INFERENCE_ADDR", "backend:6000")
	t.Setenv("RAHL_REALTIME_URL", "ws://peer/stream")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Memory.Capacity)
	assert.Equal(t, "backend:6000", cfg.Inference.Addr)
	assert.Equal(t, "ws://peer/stream", cfg.Realtime.URL)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, "memory:\n  capacity: 0\ncache:\n  driver: memcached\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory.capacity")
	assert.Contains(t, err.Error(), "memcached")
}

func TestValidateRequiresModelSources(t *testing.T) {
	cfg := Default()
	cfg.Models.Audio = ""
	assert.ErrorContains(t, cfg.Validate(), "sources are required")
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.Inference.Dimension = 128
	ec := cfg.EngineConfig()

	assert.Len(t, ec.Sources, 3)
	assert.Equal(t, cfg.Models.Vision, ec.Sources[modality.KindVision])
	assert.Equal(t, 128, ec.Fusion.Dimension)
	assert.Nil(t, ec.Required)
}
