package cache

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/rahl-ai/rahl-core/internal/codec"
	"github.com/rahl-ai/rahl-core/internal/emotion"
	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/predict"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleResult() fusion.Result {
	return fusion.Result{
		ID:          uuid.NewString(),
		Modality:    modality.Multimodal,
		Input:       "look",
		Timestamp:   1767225600000,
		Parts: []fusion.Result{
			{
				ID:          "p1",
				Modality:    modality.Text,
				Input:       "look",
				Embeddings:  []float32{1, 0.5, -0.25},
				Emotion:     &emotion.Signal{Label: emotion.Fear, Score: 0.5, Scores: map[emotion.Label]float32{emotion.Fear: 0.5, emotion.Joy: 0.5}},
				Predictions: &predict.Set{Items: []predict.Prediction{{Label: "describe_image", Score: 0.625}}, Basis: "cosine"},
				Timestamp:   1767225600000,
			},
			{
				ID:        "p2",
				Modality:  modality.Image,
				Objects:   []codec.Detection{{Label: "person", Score: 0.875, Box: [4]float32{0.125, 0.25, 0.5, 0.5}}},
				Features:  &fusion.Features{Format: "image/png", Bytes: 12, Entropy: 3.25},
				Timestamp: 1767225600000,
			},
		},
	}
}

// #endregion helpers

// #region sqlite-tests
func TestSQLiteCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewSQLite(setupDB(t))
	require.NoError(t, c.Register(ctx))

	res := sampleResult()
	require.NoError(t, c.Put(ctx, res.ID, res))

	got, err := c.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestSQLiteCache_Miss(t *testing.T) {
	ctx := context.Background()
	c := NewSQLite(setupDB(t))
	require.NoError(t, c.Register(ctx))
	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSQLiteCache_RequiresRegister(t *testing.T) {
	c := NewSQLite(setupDB(t))
	assert.Error(t, c.Put(context.Background(), "k", fusion.Result{}))
}

func TestSQLiteCache_Prune(t *testing.T) {
	ctx := context.Background()
	c := NewSQLite(setupDB(t))
	require.NoError(t, c.Register(ctx))

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now.Add(-72 * time.Hour) }
	require.NoError(t, c.Put(ctx, "old", fusion.Result{ID: "old"}))
	c.now = func() time.Time { return now }
	require.NoError(t, c.Put(ctx, "new", fusion.Result{ID: "new"}))

	n, err := c.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = c.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "new")
	assert.NoError(t, err)
}

// #endregion sqlite-tests

func TestNew(t *testing.T) {
	c, err := New(DefaultConfig(), setupDB(t))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteCache{}, c)

	_, err = New(Config{Driver: "memcached"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Driver: DriverSQLite}, nil)
	assert.Error(t, err)

	rc, err := New(Config{Driver: DriverRedis, RedisAddr: "localhost:0"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, rc)
	assert.NoError(t, rc.Close())
}

// #region redis-tests
// Requires a Redis server at $RAHL_TEST_REDIS_ADDR.
func setupRedis(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("RAHL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RAHL_TEST_REDIS_ADDR not set")
	}
	cfg := DefaultConfig()
	cfg.RedisAddr = addr
	cfg.TTL = time.Minute
	cfg.Prefix = "rahl:test:" + t.Name() + ":"
	c := NewRedis(cfg)
	if err := c.Register(context.Background()); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()
	res := sampleResult()

	require.NoError(t, c.Put(ctx, res.ID, res))
	got, err := c.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res, got)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

// #endregion redis-tests
