package security

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
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

func newManager(t *testing.T) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.KeyPath = filepath.Join(t.TempDir(), "keys", "signing.key")
	return NewManager(cfg, setupDB(t), zerolog.Nop())
}

// #endregion helpers

// #region preference-store-tests
func TestPreferenceStore_SetAndMap(t *testing.T) {
	ctx := context.Background()
	s, err := NewPreferenceStore(setupDB(t))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "locale", "fr", "explicit"))
	require.NoError(t, s.Set(ctx, "volume", 7, "explicit"))
	require.NoError(t, s.Set(ctx, "locale", "de", "explicit"))

	m, err := s.Map(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"locale": "de", "volume": float64(7)}, m)
}

func TestPreferenceStore_SetDefaultKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s, err := NewPreferenceStore(setupDB(t))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "locale", "fr", "explicit"))
	require.NoError(t, s.SetDefault(ctx, "locale", "en"))
	require.NoError(t, s.SetDefault(ctx, "theme", "dark"))

	prefs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, "fr", prefs[0].Value)
	assert.Equal(t, "explicit", prefs[0].Source)
	assert.Equal(t, "default", prefs[1].Source)

	require.NoError(t, s.Delete(ctx, "theme"))
	prefs, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, prefs, 1)
}

// #endregion preference-store-tests

// #region manager-tests
func TestManager_BeforeInitialize(t *testing.T) {
	m := newManager(t)
	assert.Empty(t, m.UserPreferences())
	_, err := m.Session()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, m.VerifyToken("x"), ErrNotInitialized)
	assert.ErrorIs(t, m.SetPreference(context.Background(), "k", 1), ErrNotInitialized)
}

func TestManager_Initialize(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Initialize(context.Background()))

	prefs := m.UserPreferences()
	assert.Equal(t, "en", prefs["locale"])
	assert.Equal(t, true, prefs["emotion_analysis"])

	sess, err := m.Session()
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.NoError(t, m.VerifyToken(sess.Token))

	info, err := os.Stat(m.config.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, int64(keySize), info.Size())
}

func TestManager_KeyReusedAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.KeyPath = filepath.Join(dir, "signing.key")

	first := NewManager(cfg, setupDB(t), zerolog.Nop())
	require.NoError(t, first.Initialize(context.Background()))
	sess, err := first.Session()
	require.NoError(t, err)

	keyBytes, err := os.ReadFile(cfg.KeyPath)
	require.NoError(t, err)

	second := NewManager(cfg, setupDB(t), zerolog.Nop())
	require.NoError(t, second.Initialize(context.Background()))
	again, err := os.ReadFile(cfg.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, keyBytes, again)

	next, err := second.Session()
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, next.ID)
	assert.NoError(t, second.VerifyToken(next.Token))
	assert.ErrorIs(t, second.VerifyToken(sess.Token), ErrInvalidToken)
}

func TestManager_RejectsForeignSession(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Initialize(context.Background()))

	// Same key, different session id.
	m.mu.Lock()
	forged := m.issueLocked()
	m.mu.Unlock()
	assert.ErrorIs(t, m.VerifyToken(forged.Token), ErrInvalidToken)
}

func TestManager_RejectsTamperedAndExpired(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Initialize(context.Background()))
	sess, err := m.Session()
	require.NoError(t, err)

	assert.ErrorIs(t, m.VerifyToken("not base64 !"), ErrInvalidToken)
	assert.ErrorIs(t, m.VerifyToken(sess.Token+"AA"), ErrInvalidToken)

	m.now = func() time.Time { return sess.ExpiresAt.Add(time.Second) }
	assert.ErrorIs(t, m.VerifyToken(sess.Token), ErrInvalidToken)
}

func TestManager_SetPreference(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx))

	require.NoError(t, m.SetPreference(ctx, "locale", "es"))
	assert.Equal(t, "es", m.UserPreferences()["locale"])

	prefs := m.UserPreferences()
	prefs["locale"] = "mutated"
	assert.Equal(t, "es", m.UserPreferences()["locale"])
}

// #endregion manager-tests
