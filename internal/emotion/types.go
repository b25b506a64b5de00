package emotion

import "context"

// #region analyzer
// Analyzer reads the emotional tone of a text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Signal, error)
}

// #endregion analyzer

// #region label
// Label names a detected emotion.
type Label string

const (
	Neutral   Label = "neutral"
	Joy       Label = "joy"
	Sadness   Label = "sadness"
	Anger     Label = "anger"
	Fear      Label = "fear"
	Gratitude Label = "gratitude"
)

// #endregion label

// #region signal
// Signal is the dominant emotion with its share of the detected evidence.
// Scores holds every label that had any evidence.
type Signal struct {
	Label  Label             `json:"label"`
	Score  float32           `json:"score"`
	Scores map[Label]float32 `json:"scores,omitempty"`
}

// #endregion signal
