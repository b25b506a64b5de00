package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/router"
)

// #region helpers
type echoHandler struct{}

func (echoHandler) ProcessRequest(_ context.Context, req router.Request) (fusion.Result, error) {
	if req.Modality == "smell" {
		return fusion.Result{}, &modality.UnsupportedError{Name: req.Modality}
	}
	return fusion.Result{ID: "r1", Modality: modality.Text, Input: req.Input}, nil
}

// peer is a websocket server that records frames received from the client.
type peer struct {
	*httptest.Server
	conns    atomic.Int32
	received chan Frame
	onConn   func(conn *websocket.Conn, n int32)
}

func newPeer(t *testing.T, onConn func(conn *websocket.Conn, n int32)) *peer {
	t.Helper()
	p := &peer{received: make(chan Frame, 16), onConn: onConn}
	upgrader := websocket.Upgrader{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := p.conns.Add(1)
		if p.onConn != nil {
			p.onConn(conn, n)
		}
		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			p.received <- f
		}
	}))
	t.Cleanup(p.Close)
	return p
}

func (p *peer) wsURL() string {
	return "ws" + strings.TrimPrefix(p.URL, "http")
}

func (p *peer) next(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-p.received:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return Frame{}
	}
}

func startClient(t *testing.T, url string) *Client {
	t.Helper()
	c := New(Config{URL: url, ReconnectDelay: 10 * time.Millisecond}, zerolog.Nop())
	c.Attach(echoHandler{})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c
}

func waitConnected(t *testing.T, c *Client) {
	t.Helper()
	require.Eventually(t, c.Connected, 2*time.Second, 5*time.Millisecond)
}

// #endregion helpers

func TestDisabledClient(t *testing.T) {
	c := New(DefaultConfig(), zerolog.Nop())
	require.NoError(t, c.Start(context.Background()))
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Publish(fusion.Result{ID: "x"}))
	assert.NoError(t, c.Close())
}

func TestPublish(t *testing.T) {
	p := newPeer(t, nil)
	c := startClient(t, p.wsURL())
	waitConnected(t, c)

	require.NoError(t, c.Publish(fusion.Result{ID: "abc", Modality: modality.Image}))
	f := p.next(t)
	assert.Equal(t, FrameResult, f.Type)
	require.NotNil(t, f.Result)
	assert.Equal(t, "abc", f.Result.ID)
}

func TestPublishWhileDisconnected(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:1/none", ReconnectDelay: time.Hour}, zerolog.Nop())
	err := c.Publish(fusion.Result{})
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestInboundInputIsAnswered(t *testing.T) {
	p := newPeer(t, func(conn *websocket.Conn, _ int32) {
		_ = conn.WriteJSON(Frame{Type: FrameInput, Request: &router.Request{Input: "hi there"}})
		_ = conn.WriteJSON(Frame{Type: FrameInput, Request: &router.Request{Input: "x", Modality: "smell"}})
	})
	startClient(t, p.wsURL())

	got := map[string]Frame{}
	for i := 0; i < 2; i++ {
		f := p.next(t)
		got[f.Type] = f
	}
	require.Contains(t, got, FrameResult)
	assert.Equal(t, "hi there", got[FrameResult].Result.Input)
	require.Contains(t, got, FrameError)
	assert.Contains(t, got[FrameError].Error, "smell")
}

func TestReconnects(t *testing.T) {
	p := newPeer(t, func(conn *websocket.Conn, n int32) {
		if n == 1 {
			conn.Close()
		}
	})
	c := startClient(t, p.wsURL())

	require.Eventually(t, func() bool { return p.conns.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	waitConnected(t, c)
}
