package api

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rahl-ai/rahl-core/internal/engine"
	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/history"
)

// #region config
// Config is the HTTP surface. RateLimit is requests per second across all
// clients; 0 disables limiting.
type Config struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	Burst        int           `mapstructure:"burst"`
	Locale       string        `mapstructure:"locale"`
}

// DefaultConfig listens on loopback with a 20 rps limit.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		RateLimit:    20,
		Burst:        40,
		Locale:       "en",
	}
}

// #endregion config

// #region deps
// StatusSource reports engine readiness.
type StatusSource interface {
	Status() engine.Status
}

// ResultStore looks up cached results by id.
type ResultStore interface {
	Get(ctx context.Context, key string) (fusion.Result, error)
}

// HistoryStore reads persisted interactions.
type HistoryStore interface {
	Get(ctx context.Context, id string) (history.Interaction, error)
	Recent(ctx context.Context, limit int) ([]history.Interaction, error)
}

// Sessions verifies bearer tokens and owns user preferences.
type Sessions interface {
	VerifyToken(token string) error
	UserPreferences() map[string]any
	SetPreference(ctx context.Context, key string, value any) error
}

// Deps are the collaborators behind the routes. Any may be nil; the
// matching routes then answer 404 or 503. A nil Sessions leaves /v1
// unauthenticated.
type Deps struct {
	Status   StatusSource
	Results  ResultStore
	History  HistoryStore
	Sessions Sessions
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// #endregion deps

// #region responses
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type historyResponse struct {
	Interactions []history.Interaction `json:"interactions"`
	Count        int                   `json:"count"`
}

// #endregion responses
