package gate

import (
	"errors"
	"fmt"
)

// ErrEngineNotReady is returned by Check unless the gate is Ready.
var ErrEngineNotReady = errors.New("engine not ready")

// #region state
// State is the readiness of the engine.
type State int32

const (
	NotReady State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case NotReady:
		return "not_ready"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// #endregion state
