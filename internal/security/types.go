package security

import (
	"errors"
	"time"
)

var (
	// ErrNotInitialized is returned before Initialize has succeeded.
	ErrNotInitialized = errors.New("security not initialized")
	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// #region config
// Config controls key storage and sessions.
type Config struct {
	KeyPath    string         `mapstructure:"key_path"`
	SessionTTL time.Duration  `mapstructure:"session_ttl"`
	Defaults   map[string]any `mapstructure:"defaults"`
}

// DefaultConfig keeps the key next to the working directory with 24h sessions.
func DefaultConfig() Config {
	return Config{
		KeyPath:    ".rahl/signing.key",
		SessionTTL: 24 * time.Hour,
		Defaults: map[string]any{
			"locale":           "en",
			"emotion_analysis": true,
		},
	}
}

// #endregion config

// #region session
// Session is the identity issued at startup.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Preference is a stored key/value preference.
type Preference struct {
	Key       string
	Value     any
	Source    string // "explicit" | "default" | "inferred"
	UpdatedAt time.Time
}

// #endregion session
