package realtime

import (
	"errors"
	"time"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/router"
)

// ErrNotConnected is returned by Publish while no connection is up.
var ErrNotConnected = errors.New("realtime not connected")

// #region config
// Config locates the realtime peer. An empty URL disables the client.
type Config struct {
	URL            string        `mapstructure:"url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig is disabled with a 3s reconnect delay.
func DefaultConfig() Config {
	return Config{ReconnectDelay: 3 * time.Second, WriteTimeout: 5 * time.Second}
}

// #endregion config

// #region frame
// Frame types.
const (
	FrameInput  = "input"
	FrameResult = "result"
	FrameError  = "error"
)

// Frame is one JSON websocket message in either direction.
type Frame struct {
	Type    string          `json:"type"`
	Request *router.Request `json:"request,omitempty"`
	Result  *fusion.Result  `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// #endregion frame
