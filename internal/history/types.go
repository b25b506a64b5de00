package history

import (
	"errors"
	"time"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/modality"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("interaction not found")

// #region interaction
// Interaction is one stored request outcome.
type Interaction struct {
	ID            string            `json:"id"`
	Modality      modality.Modality `json:"modality"`
	Input         string            `json:"input"`
	Embedding     []float32         `json:"-"`
	EmotionLabel  string            `json:"emotion_label,omitempty"`
	EmotionScore  float32           `json:"emotion_score,omitempty"`
	TopPrediction string            `json:"top_prediction,omitempty"`
	Result        fusion.Result     `json:"result"`
	CreatedAt     time.Time         `json:"created_at"`
}

// #endregion interaction
