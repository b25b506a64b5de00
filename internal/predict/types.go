package predict

import (
	"context"
	"errors"
)

// ErrNotPrimed is returned by Forecast before prototypes have been encoded.
var ErrNotPrimed = errors.New("forecaster not primed")

// #region interfaces
// Forecaster ranks likely user intents for a fused embedding.
type Forecaster interface {
	Forecast(ctx context.Context, vec []float32, reqContext map[string]any) (Set, error)
}

// Embedder encodes text; satisfied by the fusion pipeline once the text model is ready.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// #endregion interfaces

// #region set
// Prediction is one ranked intent.
type Prediction struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Set is a forecast, best first.
type Set struct {
	Items []Prediction `json:"items"`
	Basis string       `json:"basis"`
}

// Top returns the best prediction, or false when the set is empty.
func (s Set) Top() (Prediction, bool) {
	if len(s.Items) == 0 {
		return Prediction{}, false
	}
	return s.Items[0], true
}

// #endregion set

// #region config
// Config tunes the prototype forecaster.
type Config struct {
	TopK      int     `mapstructure:"top_k"`
	HintBoost float32 `mapstructure:"hint_boost"`
}

// DefaultConfig returns top-3 with a 0.1 boost for hinted intents.
func DefaultConfig() Config {
	return Config{TopK: 3, HintBoost: 0.1}
}

// #endregion config
