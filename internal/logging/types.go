package logging

import "time"

// #region config
// Config selects the log level and output format.
type Config struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// #endregion config

// #region event
// Event is a single row in the event_log table: one lifecycle step of the
// application (a startup phase, a readiness transition, a maintenance run).
type Event struct {
	ID        int64
	Phase     string // "security" | "cache" | "ai" | "ui" | "background" | "listeners" | ...
	Kind      string // "start" | "done" | "failed"
	Detail    string
	CreatedAt time.Time
}

// #endregion event
