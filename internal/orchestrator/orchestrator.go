package orchestrator

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rahl-ai/rahl-core/internal/engine"
	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/metrics"
	"github.com/rahl-ai/rahl-core/internal/router"
)

// #endregion

// ErrNotInitialized is returned by ProcessRequest before Init has succeeded.
var ErrNotInitialized = errors.New("application not initialized")

// #region orchestrator-struct

// Deps are the collaborators the orchestrator sequences. Security, Cache,
// AI and UI are required; the rest may be nil.
type Deps struct {
	Security   Security
	Cache      Cache
	AI         AI
	UI         UI
	Background []Background
	Listeners  []Listener
	Recorder   Recorder
	Publisher  Publisher
	Events     EventLog
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

// Orchestrator runs startup in a fixed order and routes input events
// through the AI, then into the cache, history and realtime channel.
type Orchestrator struct {
	deps        Deps
	logger      zerolog.Logger
	initialized atomic.Bool
}

// New wires an orchestrator. Nothing runs until Init.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		logger: deps.Logger.With().Str("component", "orchestrator").Logger(),
	}
}

// #endregion

// #region init

// Init runs security, cache registration, model loading, UI render,
// background start and listener attachment, in that order. The first
// failure stops the sequence and is returned as *InitError.
func (o *Orchestrator) Init(ctx context.Context) error {
	steps := map[Phase]func(context.Context) error{
		PhaseSecurity: o.deps.Security.Initialize,
		PhaseCache:    o.deps.Cache.Register,
		PhaseAI:       o.deps.AI.LoadModels,
		PhaseUI:       o.deps.UI.Render,
		PhaseBackground: func(ctx context.Context) error {
			for _, b := range o.deps.Background {
				if err := b.Start(ctx); err != nil {
					return err
				}
			}
			return nil
		},
		PhaseListeners: func(context.Context) error {
			o.deps.UI.Attach(o)
			for _, l := range o.deps.Listeners {
				l.Attach(o)
			}
			return nil
		},
	}

	for _, phase := range Phases() {
		o.event(phase, "start", "")
		if err := steps[phase](ctx); err != nil {
			o.event(phase, "failed", err.Error())
			o.logger.Error().Err(err).Str("phase", string(phase)).Msg("initialization aborted")
			return &InitError{Phase: phase, Err: err}
		}
		o.event(phase, "done", "")
		o.logger.Info().Str("phase", string(phase)).Msg("phase complete")
	}

	o.initialized.Store(true)
	o.logger.Info().Msg("application initialized")
	return nil
}

func (o *Orchestrator) event(phase Phase, kind, detail string) {
	if o.deps.Events == nil {
		return
	}
	if err := o.deps.Events.Record(string(phase), kind, detail); err != nil {
		o.logger.Warn().Err(err).Msg("event log write failed")
	}
}

// Initialized reports whether Init has completed.
func (o *Orchestrator) Initialized() bool {
	return o.initialized.Load()
}

// #endregion

// #region process

// ProcessInput processes a text or named-modality input event.
func (o *Orchestrator) ProcessInput(ctx context.Context, input, modality string) (fusion.Result, error) {
	return o.ProcessRequest(ctx, router.Request{Input: input, Modality: modality})
}

// ProcessRequest enriches req with UI context and user preferences, runs it
// through the AI and hands the result to the cache before returning it.
// Cache, history and realtime failures are logged, never returned.
func (o *Orchestrator) ProcessRequest(ctx context.Context, req router.Request) (fusion.Result, error) {
	if !o.initialized.Load() {
		return fusion.Result{}, ErrNotInitialized
	}
	req.Context = o.buildContext(req.Context)

	res, err := o.deps.AI.ProcessRequest(ctx, req)
	if err != nil {
		o.logger.Warn().Err(err).Str("class", engine.Classify(err)).Str("modality", req.Modality).Msg("input rejected")
		return fusion.Result{}, fmt.Errorf("process input: %w", err)
	}

	if err := o.deps.Cache.Put(ctx, res.ID, res); err != nil {
		o.deps.Metrics.CacheWrite(false)
		o.logger.Error().Err(err).Str("id", res.ID).Msg("cache write failed")
	} else {
		o.deps.Metrics.CacheWrite(true)
	}
	if o.deps.Recorder != nil {
		o.deps.Recorder.Submit(res)
	}
	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.Publish(res); err != nil {
			o.logger.Debug().Err(err).Str("id", res.ID).Msg("realtime publish skipped")
		}
	}
	return res, nil
}

// buildContext layers request context over UI context and sets
// user_preferences from the security collaborator.
func (o *Orchestrator) buildContext(reqContext map[string]any) map[string]any {
	out := maps.Clone(o.deps.UI.Context())
	if out == nil {
		out = make(map[string]any)
	}
	maps.Copy(out, reqContext)
	out["user_preferences"] = o.deps.Security.UserPreferences()
	return out
}

// #endregion
