package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rahl-ai/rahl-core/internal/metrics"
	"github.com/rahl-ai/rahl-core/internal/modality"
)

// #region registry-struct
// Registry is a typed table of models keyed by kind, each with an explicit
// load state. Loading is an explicit step; Invoke never loads lazily.
type Registry struct {
	backend Backend
	config  Config
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu      sync.Mutex
	entries map[modality.ModelKind]*entry
}

type entry struct {
	handle Handle
	err    error
	done   chan struct{} // closed when the in-flight load settles
}

// New creates an empty registry. m may be nil.
func New(backend Backend, config Config, m *metrics.Metrics, logger zerolog.Logger) *Registry {
	return &Registry{
		backend: backend,
		config:  config,
		metrics: m,
		logger:  logger,
		entries: make(map[modality.ModelKind]*entry),
	}
}

// #endregion registry-struct

// #region load
// Load fetches the model for kind from source. A kind that is already ready
// returns its existing handle without touching the backend; concurrent loads
// of the same kind share one backend call.
func (r *Registry) Load(ctx context.Context, kind modality.ModelKind, source string) (Handle, error) {
	r.mu.Lock()
	if e, ok := r.entries[kind]; ok {
		switch e.handle.State {
		case modality.Ready:
			h := e.handle
			r.mu.Unlock()
			return h, nil
		case modality.Loading:
			done := e.done
			r.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return Handle{}, ctx.Err()
			}
			return r.settled(kind)
		}
	}

	e := &entry{
		handle: Handle{Name: string(kind), Kind: kind, Source: source, State: modality.Loading},
		done:   make(chan struct{}),
	}
	r.entries[kind] = e
	r.mu.Unlock()
	r.metrics.SetModelState(string(kind), int(modality.Loading))

	r.logger.Info().Str("kind", string(kind)).Str("source", source).Msg("loading model")
	start := time.Now()
	res, err := r.loadWithRetry(ctx, kind, source)
	elapsed := time.Since(start)

	r.mu.Lock()
	if err != nil {
		e.handle.State = modality.Failed
		e.handle.Error = err.Error()
		e.err = &LoadError{Kind: kind, Source: source, Err: err}
	} else {
		e.handle.State = modality.Ready
		e.handle.ModelID = res.ModelID
		e.handle.Dimension = res.Dimension
		e.handle.LoadedAt = time.Now().UTC()
	}
	close(e.done)
	h, lerr := e.handle, e.err
	r.mu.Unlock()

	r.metrics.ObserveModelLoad(string(kind), elapsed)
	r.metrics.SetModelState(string(kind), int(h.State))
	if lerr != nil {
		r.logger.Error().Err(lerr).Str("kind", string(kind)).Dur("elapsed", elapsed).Msg("model load failed")
		return h, lerr
	}
	r.logger.Info().Str("kind", string(kind)).Str("model_id", h.ModelID).Dur("elapsed", elapsed).Msg("model ready")
	return h, nil
}

func (r *Registry) settled(kind modality.ModelKind) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[kind]
	return e.handle, e.err
}

// #endregion load

// #region invoke
// Invoke runs payload through the ready model for kind.
func (r *Registry) Invoke(ctx context.Context, kind modality.ModelKind, payload map[string]any) (map[string]any, error) {
	r.mu.Lock()
	e, ok := r.entries[kind]
	if !ok || e.handle.State != modality.Ready {
		r.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", kind, ErrModelNotReady)
	}
	modelID := e.handle.ModelID
	r.mu.Unlock()

	out, err := r.backend.Invoke(ctx, modelID, payload)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", kind, err)
	}
	return out, nil
}

// #endregion invoke

// #region accessors
// Handle returns the entry for kind. Unknown kinds report Unloaded.
func (r *Registry) Handle(kind modality.ModelKind) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[kind]; ok {
		return e.handle
	}
	return Handle{Name: string(kind), Kind: kind, State: modality.Unloaded}
}

// Handles returns every known entry sorted by kind.
func (r *Registry) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.handle)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Ready reports whether kind has a ready handle.
func (r *Registry) Ready(kind modality.ModelKind) bool {
	return r.Handle(kind).State == modality.Ready
}

// #endregion accessors
