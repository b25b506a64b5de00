// Package api serves the HTTP and websocket surface of the assistant.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rahl-ai/rahl-core/internal/cache"
	"github.com/rahl-ai/rahl-core/internal/engine"
	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/history"
	"github.com/rahl-ai/rahl-core/internal/logging"
	"github.com/rahl-ai/rahl-core/internal/orchestrator"
	"github.com/rahl-ai/rahl-core/internal/realtime"
	"github.com/rahl-ai/rahl-core/internal/router"
	"github.com/rahl-ai/rahl-core/internal/security"
)

const (
	maxBodyBytes        = 32 << 20
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// #region server-struct
// Server is the HTTP surface. It is the UI collaborator: Render starts
// serving, Context describes the surface and Attach installs the handler
// that input events are routed to.
type Server struct {
	config   Config
	deps     Deps
	logger   zerolog.Logger
	limiter  *rate.Limiter
	upgrader websocket.Upgrader

	mu           sync.RWMutex
	handler      router.Handler
	lastModality string
	srv          *http.Server
	addr         net.Addr
	conns        map[*websocket.Conn]struct{}

	clients atomic.Int64
}

// New creates a server. Nothing listens until Render.
func New(config Config, deps Deps) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		logger: logging.Component(deps.Logger, "api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
	if config.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), max(config.Burst, 1))
	}
	return s
}

// #endregion server-struct

// #region routes
// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.authenticate)
		r.Get("/status", s.handleStatus)
		r.Post("/process", s.handleProcess)
		r.Get("/results/{id}", s.handleResult)
		r.Get("/history", s.handleHistory)
		r.Get("/stream", s.handleStream)
		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handlePutPreferences)
	})

	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate requires the session token as a bearer header. Stream
// clients that cannot set headers may pass it as ?token=.
func (s *Server) authenticate(next http.Handler) http.Handler {
	if s.deps.Sessions == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "missing session token", "unauthorized")
			return
		}
		if err := s.deps.Sessions.VerifyToken(token); err != nil {
			if errors.Is(err, security.ErrNotInitialized) {
				writeError(w, http.StatusServiceUnavailable, err.Error(), "unavailable")
				return
			}
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, err.Error(), "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

// #endregion routes

// #region ui-collaborator
// Render binds the listener and serves in the background until ctx ends.
func (s *Server) Render(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("http server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("http shutdown")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("http listening")
	return nil
}

// Shutdown stops the server and closes open stream connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr is the bound address, or "" before Render.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Context describes the surface to the request pipeline.
func (s *Server) Context() map[string]any {
	s.mu.RLock()
	last := s.lastModality
	s.mu.RUnlock()
	return map[string]any{
		"ui":            "http",
		"clients":       int(s.clients.Load()),
		"locale":        s.config.Locale,
		"last_modality": last,
	}
}

// Attach sets the handler for process and stream requests.
func (s *Server) Attach(h router.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *Server) currentHandler() router.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

func (s *Server) process(ctx context.Context, h router.Handler, req router.Request) (fusion.Result, error) {
	name := req.Modality
	if name == "" {
		name = "text"
	}
	s.mu.Lock()
	s.lastModality = name
	s.mu.Unlock()
	return h.ProcessRequest(ctx, req)
}

// #endregion ui-collaborator

// #region handlers
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Status == nil {
		writeError(w, http.StatusServiceUnavailable, "status unavailable", "unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Status.Status())
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	h := s.currentHandler()
	if h == nil {
		writeError(w, http.StatusServiceUnavailable, "no input handler attached", "unavailable")
		return
	}
	var req router.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), engine.ClassInvalid)
		return
	}
	res, err := s.process(r.Context(), h, req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleResult serves from the cache, falling back to history.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.deps.Results != nil {
		res, err := s.deps.Results.Get(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, res)
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.writeErr(w, err)
			return
		}
	}
	if s.deps.History != nil {
		inter, err := s.deps.History.Get(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, inter.Result)
			return
		}
		if !errors.Is(err, history.ErrNotFound) {
			s.writeErr(w, err)
			return
		}
	}
	writeError(w, http.StatusNotFound, "result "+id+" not found", "not_found")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history unavailable", "unavailable")
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", engine.ClassInvalid)
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	rows, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if rows == nil {
		rows = []history.Interaction{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Interactions: rows, Count: len(rows)})
}

// handleStream reads request frames and answers each with a result or
// error frame, one at a time per connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	h := s.currentHandler()
	if h == nil {
		writeError(w, http.StatusServiceUnavailable, "no input handler attached", "unavailable")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.track(conn, true)
	s.clients.Add(1)
	defer func() {
		s.clients.Add(-1)
		s.track(conn, false)
		conn.Close()
	}()

	for {
		var req router.Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("stream closed")
			}
			return
		}
		res, err := s.process(r.Context(), h, req)
		frame := realtime.Frame{Type: realtime.FrameResult, Result: &res}
		if err != nil {
			frame = realtime.Frame{Type: realtime.FrameError, Error: err.Error()}
		}
		if s.config.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if err := conn.WriteJSON(frame); err != nil {
			s.logger.Debug().Err(err).Msg("stream write failed")
			return
		}
	}
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "preferences unavailable", "unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sessions.UserPreferences())
}

// handlePutPreferences stores every key of a JSON object body and answers
// with the full preference set.
func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "preferences unavailable", "unavailable")
		return
	}
	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), engine.ClassInvalid)
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "no preferences given", engine.ClassInvalid)
		return
	}
	keys := make([]string, 0, len(body))
	for k := range body {
		if strings.TrimSpace(k) == "" {
			writeError(w, http.StatusBadRequest, "preference key must not be empty", engine.ClassInvalid)
			return
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := s.deps.Sessions.SetPreference(r.Context(), k, body[k]); err != nil {
			s.writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.deps.Sessions.UserPreferences())
}

func (s *Server) track(c *websocket.Conn, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

// #endregion handlers

// #region errors
// StatusFor maps a pipeline error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, cache.ErrCacheMiss), errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrNotInitialized), errors.Is(err, security.ErrNotInitialized):
		return http.StatusServiceUnavailable
	}
	switch engine.Classify(err) {
	case engine.ClassUnsupported, engine.ClassInvalid:
		return http.StatusBadRequest
	case engine.ClassNotReady, engine.ClassModel:
		return http.StatusServiceUnavailable
	case engine.ClassCanceled:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeError(w, status, err.Error(), engine.Classify(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	var body errorBody
	body.Error.Message = msg
	body.Error.Type = kind
	writeJSON(w, status, body)
}

// #endregion errors
