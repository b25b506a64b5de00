package logging

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

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

// #endregion helpers

// #region event-log-tests
func TestEventLog_RecordAndRecent(t *testing.T) {
	log, err := NewEventLog(setupDB(t))
	require.NoError(t, err)
	log.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, log.Record("security", "start", ""))
	require.NoError(t, log.Record("security", "done", ""))
	require.NoError(t, log.Record("ai", "failed", "load text: unavailable"))

	events, err := log.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "ai", events[0].Phase)
	assert.Equal(t, "failed", events[0].Kind)
	assert.Equal(t, "load text: unavailable", events[0].Detail)
	assert.Equal(t, "", events[2].Detail)
	assert.True(t, events[0].CreatedAt.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestEventLog_RecentLimit(t *testing.T) {
	log, err := NewEventLog(setupDB(t))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Record("ui", "start", ""))
	}
	events, err := log.Recent(2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestEventLog_SchemaIdempotent(t *testing.T) {
	db := setupDB(t)
	_, err := NewEventLog(db)
	require.NoError(t, err)
	_, err = NewEventLog(db)
	require.NoError(t, err)
}

// #endregion event-log-tests

// #region logger-tests
func TestNewWithWriter_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "warn"}, &buf)

	l.Info().Msg("hidden")
	cl := Component(l, "engine")
	cl.Warn().Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "warn", line["level"])
}

func TestNewWithWriter_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "loud"}, &buf)
	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	l.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

// #endregion logger-tests
