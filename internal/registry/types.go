package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rahl-ai/rahl-core/internal/codec"
	"github.com/rahl-ai/rahl-core/internal/modality"
)

// #region backend
// Backend is the model-serving transport. *codec.Client satisfies it.
type Backend interface {
	LoadModel(ctx context.Context, name, source string) (codec.LoadResult, error)
	Invoke(ctx context.Context, modelID string, payload map[string]any) (map[string]any, error)
}

// #endregion backend

// #region config
// Config controls load behaviour.
type Config struct {
	LoadRetries int           `mapstructure:"load_retries"` // extra attempts after a failed load; 0 = fail on first error
	LoadBackoff time.Duration `mapstructure:"load_backoff"` // delay before retry n is n*LoadBackoff
}

// DefaultConfig performs exactly one load attempt per model.
func DefaultConfig() Config {
	return Config{LoadRetries: 0, LoadBackoff: time.Second}
}

// #endregion config

// #region handle
// Handle describes one registry entry. Handles are values: callers get copies
// and never mutate the registry's own record.
type Handle struct {
	Name      string             `json:"name"`
	Kind      modality.ModelKind `json:"kind"`
	Source    string             `json:"source"`
	ModelID   string             `json:"model_id,omitempty"`
	Dimension int                `json:"dimension,omitempty"`
	State     modality.LoadState `json:"state"`
	LoadedAt  time.Time          `json:"loaded_at,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// #endregion handle

// #region errors
var (
	// ErrModelNotReady is returned by Invoke when the kind has no ready handle.
	ErrModelNotReady = errors.New("model not ready")

	// ErrLoad matches any *LoadError via errors.Is.
	ErrLoad = errors.New("model load failed")
)

// LoadError is a model fetch or parse failure. It is fatal to readiness.
type LoadError struct {
	Kind   modality.ModelKind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s model from %s: %v", e.Kind, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// #endregion errors
