package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const eventSchema = `
CREATE TABLE IF NOT EXISTS event_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	phase       TEXT NOT NULL,
	kind        TEXT NOT NULL,
	detail      TEXT,
	created_at  INTEGER NOT NULL
);
`

// #endregion schema

// #region event-log
// EventLog persists lifecycle events in SQLite.
type EventLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventLog creates the event_log table if needed.
func NewEventLog(db *sql.DB) (*EventLog, error) {
	if _, err := db.Exec(eventSchema); err != nil {
		return nil, fmt.Errorf("create event_log: %w", err)
	}
	return &EventLog{db: db, now: time.Now}, nil
}

// #endregion event-log

// #region record
// Record writes one event row.
func (l *EventLog) Record(phase, kind, detail string) error {
	_, err := l.db.Exec(
		`INSERT INTO event_log (phase, kind, detail, created_at) VALUES (?, ?, ?, ?)`,
		phase,
		kind,
		nullIfEmpty(detail),
		l.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// #endregion record

// #region recent
// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(limit int) ([]Event, error) {
	rows, err := l.db.Query(
		`SELECT id, phase, kind, detail, created_at FROM event_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var detail sql.NullString
		var created int64
		if err := rows.Scan(&e.ID, &e.Phase, &e.Kind, &detail, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Detail = detail.String
		e.CreatedAt = time.UnixMilli(created).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// #endregion recent

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
