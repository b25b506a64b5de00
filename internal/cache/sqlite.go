package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rahl-ai/rahl-core/internal/fusion"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS result_cache (
	key         TEXT PRIMARY KEY,
	value_json  TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
`

// #region sqlite-cache
// SQLiteCache keeps results in the application database.
type SQLiteCache struct {
	db         *sql.DB
	now        func() time.Time
	registered atomic.Bool
}

// NewSQLite returns an unregistered cache on db. The cache does not own db.
func NewSQLite(db *sql.DB) *SQLiteCache {
	return &SQLiteCache{db: db, now: time.Now}
}

func (c *SQLiteCache) Register(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create result_cache: %w", err)
	}
	c.registered.Store(true)
	return nil
}

func (c *SQLiteCache) Put(ctx context.Context, key string, res fusion.Result) error {
	if !c.registered.Load() {
		return errNotRegistered
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO result_cache (key, value_json, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, created_at = excluded.created_at`,
		key, string(raw), c.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (fusion.Result, error) {
	if !c.registered.Load() {
		return fusion.Result{}, errNotRegistered
	}
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT value_json FROM result_cache WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fusion.Result{}, fmt.Errorf("%s: %w", key, ErrCacheMiss)
	}
	if err != nil {
		return fusion.Result{}, fmt.Errorf("cache get %s: %w", key, err)
	}
	var res fusion.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return fusion.Result{}, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return res, nil
}

func (c *SQLiteCache) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM result_cache WHERE created_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Close is a no-op; the database belongs to the caller.
func (c *SQLiteCache) Close() error { return nil }

var errNotRegistered = errors.New("cache not registered")

// #endregion sqlite-cache
