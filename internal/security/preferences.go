package security

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region store
// PreferenceStore keeps user preferences as JSON values in SQLite.
type PreferenceStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPreferenceStore creates the preferences table if needed.
func NewPreferenceStore(db *sql.DB) (*PreferenceStore, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS user_preferences (
		key        TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT 'explicit',
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create preferences table: %w", err)
	}
	return &PreferenceStore{db: db, now: time.Now}, nil
}

// Set stores value under key, replacing any earlier value.
func (s *PreferenceStore) Set(ctx context.Context, key string, value any, source string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal preference %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_preferences (key, value_json, source, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json,
		   source = excluded.source, updated_at = excluded.updated_at`,
		key, string(raw), source, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// SetDefault stores value only if key is absent.
func (s *PreferenceStore) SetDefault(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal preference %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_preferences (key, value_json, source, updated_at) VALUES (?, ?, 'default', ?)`,
		key, string(raw), s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("default preference: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *PreferenceStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}

// List returns all preferences ordered by key.
func (s *PreferenceStore) List(ctx context.Context) ([]Preference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value_json, source, updated_at FROM user_preferences ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		var raw string
		var updated int64
		if err := rows.Scan(&p.Key, &raw, &p.Source, &updated); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &p.Value); err != nil {
			return nil, fmt.Errorf("unmarshal preference %s: %w", p.Key, err)
		}
		p.UpdatedAt = time.UnixMilli(updated).UTC()
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// Map returns all preferences as a key to value map.
func (s *PreferenceStore) Map(ctx context.Context) (map[string]any, error) {
	prefs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(prefs))
	for _, p := range prefs {
		out[p.Key] = p.Value
	}
	return out, nil
}

// #endregion store
