package modality

import (
	"errors"
	"fmt"
)

// #region modality
// Modality is the input medium of a request.
type Modality string

const (
	Text       Modality = "text"
	Image      Modality = "image"
	Audio      Modality = "audio"
	Multimodal Modality = "multimodal"
)

// All returns every supported request modality.
func All() []Modality {
	return []Modality{Text, Image, Audio, Multimodal}
}

// #endregion modality

// #region model-kind
// ModelKind keys the model registry. Each kind is backed by one loaded model.
type ModelKind string

const (
	KindText   ModelKind = "text"
	KindVision ModelKind = "vision"
	KindAudio  ModelKind = "audio"
)

// Kinds returns every model kind in load order.
func Kinds() []ModelKind {
	return []ModelKind{KindText, KindVision, KindAudio}
}

// #endregion model-kind

// #region load-state
// LoadState tracks a registry entry through loading.
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

// MarshalText lets handles render their state by name in JSON.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// #endregion load-state

// #region errors
// ErrUnsupported matches any UnsupportedError via errors.Is.
var ErrUnsupported = errors.New("unsupported modality")

// UnsupportedError reports a modality name outside the closed set.
type UnsupportedError struct {
	Name string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported modality: %s", e.Name)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// #endregion errors
