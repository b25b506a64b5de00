package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/router"
)

// #region client
// Client keeps an outbound websocket open to the realtime peer, reconnecting
// after failures. Inbound input frames go to the attached handler and the
// outcome is sent back. Nothing here blocks request processing.
type Client struct {
	config Config
	logger zerolog.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	handler router.Handler

	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a stopped client.
func New(config Config, logger zerolog.Logger) *Client {
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = DefaultConfig().ReconnectDelay
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Client{
		config: config,
		logger: logger.With().Str("component", "realtime").Logger(),
	}
}

// Enabled reports whether a peer URL is configured.
func (c *Client) Enabled() bool {
	return c.config.URL != ""
}

// Attach sets the handler for inbound input frames.
func (c *Client) Attach(h router.Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// Connected reports whether a connection is currently up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// #endregion client

// #region lifecycle
// Start launches the connect loop. It returns immediately; a disabled client
// does nothing.
func (c *Client) Start(ctx context.Context) error {
	if !c.Enabled() {
		c.logger.Info().Msg("realtime disabled")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
	return nil
}

// Close stops the loop and closes any open connection.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		conn.Close()
	}
	c.wg.Wait()
	return nil
}

func (c *Client) run(ctx context.Context) {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn().Err(err).Dur("retry_in", c.config.ReconnectDelay).Msg("realtime connection lost")
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.config.ReconnectDelay):
		}
	}
}

// session dials once and reads until the connection fails.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info().Str("url", c.config.URL).Msg("realtime connected")

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.handleFrame(ctx, f)
	}
}

// #endregion lifecycle

// #region frames
func (c *Client) handleFrame(ctx context.Context, f Frame) {
	if f.Type != FrameInput || f.Request == nil {
		c.logger.Debug().Str("type", f.Type).Msg("ignoring frame")
		return
	}
	c.mu.RLock()
	h := c.handler
	c.mu.RUnlock()
	if h == nil {
		c.logger.Warn().Msg("input frame before handler attached")
		return
	}

	req := *f.Request
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := h.ProcessRequest(ctx, req)
		out := Frame{Type: FrameResult, Result: &res}
		if err != nil {
			out = Frame{Type: FrameError, Error: err.Error()}
		}
		if err := c.send(out); err != nil {
			c.logger.Warn().Err(err).Msg("realtime reply dropped")
		}
	}()
}

// Publish sends res as a result frame. It fails fast when disconnected.
func (c *Client) Publish(res fusion.Result) error {
	if !c.Enabled() {
		return nil
	}
	return c.send(Frame{Type: FrameResult, Result: &res})
}

func (c *Client) send(f Frame) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// #endregion frames
