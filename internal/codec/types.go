package codec

import "errors"

// ErrMalformedOutput is returned when a backend response lacks an expected field.
var ErrMalformedOutput = errors.New("malformed backend output")

// #region types
// LoadResult is the backend's acknowledgement of a LoadModel call.
type LoadResult struct {
	ModelID   string
	Dimension int
}

// Detection is one object found by the vision model.
type Detection struct {
	Label string     `json:"label"`
	Score float32    `json:"score"`
	Box   [4]float32 `json:"box"` // x, y, width, height normalised to [0,1]
}

// Transcript is the audio model's reading of a clip.
type Transcript struct {
	Text       string  `json:"text"`
	Language   string  `json:"language,omitempty"`
	Confidence float32 `json:"confidence"`
}

// #endregion types
