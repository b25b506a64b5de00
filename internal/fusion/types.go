package fusion

import (
	"context"
	"errors"

	"github.com/rahl-ai/rahl-core/internal/codec"
	"github.com/rahl-ai/rahl-core/internal/emotion"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/predict"
)

var (
	// ErrEmptyPayload is returned when an image or audio request carries no bytes.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrNoParts is returned for a multimodal request without parts.
	ErrNoParts = errors.New("multimodal request has no parts")
	// ErrDimensionMismatch is returned when input and context vectors differ in length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// #region collaborators
// Invoker runs a payload through a loaded model.
type Invoker interface {
	Invoke(ctx context.Context, kind modality.ModelKind, payload map[string]any) (map[string]any, error)
}

// FeatureAnalyzer extracts descriptive features from raw image bytes.
type FeatureAnalyzer interface {
	Analyze(ctx context.Context, data []byte) (Features, error)
}

// #endregion collaborators

// #region config
// Config holds pipeline tuning.
type Config struct {
	Dimension int `mapstructure:"dimension"`
}

// DefaultConfig matches the text encoder's 512-wide output.
func DefaultConfig() Config {
	return Config{Dimension: 512}
}

// #endregion config

// #region result
// Features describes an image independent of what it depicts.
type Features struct {
	Format  string  `json:"format"`
	Bytes   int     `json:"bytes"`
	Entropy float64 `json:"entropy"`
}

// Part is one component of a multimodal request.
type Part struct {
	Modality modality.Modality `json:"modality"`
	Input    string            `json:"input,omitempty"`
	Data     []byte            `json:"data,omitempty"`
}

// Result is the response bundle for one request. Text and audio results carry
// the fused embedding; image results carry detections and features.
type Result struct {
	ID          string            `json:"id"`
	Modality    modality.Modality `json:"modality"`
	Input       string            `json:"input,omitempty"`
	Embeddings  []float32         `json:"embeddings,omitempty"`
	Emotion     *emotion.Signal   `json:"emotion,omitempty"`
	Predictions *predict.Set      `json:"predictions,omitempty"`
	Objects     []codec.Detection `json:"objects,omitempty"`
	Features    *Features         `json:"features,omitempty"`
	Transcript  *codec.Transcript `json:"transcript,omitempty"`
	Parts       []Result          `json:"parts,omitempty"`
	Timestamp   int64             `json:"timestamp"`
}

// #endregion result
