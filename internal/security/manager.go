package security

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// #region manager
// Manager owns the signing key, the current session and user preferences.
type Manager struct {
	config Config
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	key     []byte
	prefs   *PreferenceStore
	cached  map[string]any
	session Session
}

// NewManager returns an uninitialized manager backed by db.
func NewManager(config Config, db *sql.DB, logger zerolog.Logger) *Manager {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultConfig().SessionTTL
	}
	return &Manager{
		config: config,
		db:     db,
		logger: logger.With().Str("component", "security").Logger(),
		now:    time.Now,
	}
}

// #endregion manager

// #region initialize
// Initialize prepares the preference table, seeds defaults, loads or creates
// the signing key and issues a session.
func (m *Manager) Initialize(ctx context.Context) error {
	prefs, err := NewPreferenceStore(m.db)
	if err != nil {
		return err
	}
	for k, v := range m.config.Defaults {
		if err := prefs.SetDefault(ctx, k, v); err != nil {
			return err
		}
	}
	cached, err := prefs.Map(ctx)
	if err != nil {
		return err
	}
	key, err := ensureKey(m.config.KeyPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.prefs = prefs
	m.cached = cached
	m.key = key
	m.session = m.issueLocked()
	sess := m.session
	m.mu.Unlock()

	m.logger.Info().Str("session", sess.ID).Int("preferences", len(cached)).Msg("security initialized")
	return nil
}

// #endregion initialize

// #region preferences
// UserPreferences returns a copy of the current preferences. It is empty
// before Initialize.
func (m *Manager) UserPreferences() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.cached)
}

// SetPreference persists one preference and updates the cached view.
func (m *Manager) SetPreference(ctx context.Context, key string, value any) error {
	m.mu.RLock()
	prefs := m.prefs
	m.mu.RUnlock()
	if prefs == nil {
		return ErrNotInitialized
	}
	if err := prefs.Set(ctx, key, value, "explicit"); err != nil {
		return err
	}
	fresh, err := prefs.Map(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cached = fresh
	m.mu.Unlock()
	return nil
}

// #endregion preferences

// #region session
// Session returns the session issued by Initialize.
func (m *Manager) Session() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.key == nil {
		return Session{}, ErrNotInitialized
	}
	return m.session, nil
}

// Token format: base64url("<session id>.<expiry unix>.<hmac>").
func (m *Manager) issueLocked() Session {
	now := m.now().UTC()
	s := Session{
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.config.SessionTTL),
	}
	payload := s.ID + "." + strconv.FormatInt(s.ExpiresAt.Unix(), 10)
	s.Token = base64.RawURLEncoding.EncodeToString([]byte(payload + "." + sign(m.key, payload)))
	return s
}

// VerifyToken accepts only the current session's token, unexpired and
// signed with this key.
func (m *Manager) VerifyToken(token string) error {
	m.mu.RLock()
	key := m.key
	sessionID := m.session.ID
	m.mu.RUnlock()
	if key == nil {
		return ErrNotInitialized
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: encoding", ErrInvalidToken)
	}
	parts := strings.Split(string(raw), ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: shape", ErrInvalidToken)
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(sign(key, payload))) {
		return fmt.Errorf("%w: signature", ErrInvalidToken)
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: expiry", ErrInvalidToken)
	}
	if m.now().Unix() >= exp {
		return fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	if !hmac.Equal([]byte(parts[0]), []byte(sessionID)) {
		return fmt.Errorf("%w: foreign session", ErrInvalidToken)
	}
	return nil
}

func sign(key []byte, payload string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// #endregion session
