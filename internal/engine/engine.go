package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rahl-ai/rahl-core/internal/emotion"
	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/gate"
	"github.com/rahl-ai/rahl-core/internal/memory"
	"github.com/rahl-ai/rahl-core/internal/metrics"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/predict"
	"github.com/rahl-ai/rahl-core/internal/registry"
	"github.com/rahl-ai/rahl-core/internal/router"
)

// #region engine-struct
// Engine is the reasoner: it loads models behind a readiness gate and routes
// requests into the fusion pipeline.
type Engine struct {
	config     Config
	registry   *registry.Registry
	memory     *memory.Memory
	forecaster Forecaster
	pipeline   *fusion.Pipeline
	gate       *gate.Readiness
	warmup     WarmupSource
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New wires an engine. Missing optional deps get defaults: a ten-entry
// memory, the lexicon analyzer and the prototype forecaster.
func New(config Config, deps Deps) *Engine {
	if deps.Memory == nil {
		deps.Memory = memory.New(memory.DefaultCapacity)
	}
	if deps.Analyzer == nil {
		deps.Analyzer = emotion.NewLexicon()
	}
	if deps.Forecaster == nil {
		deps.Forecaster = predict.NewPrototype(predict.DefaultConfig(), nil)
	}
	if config.Required == nil {
		config.Required = modality.Kinds()
	}
	logger := deps.Logger.With().Str("component", "engine").Logger()

	return &Engine{
		config:     config,
		registry:   deps.Registry,
		memory:     deps.Memory,
		forecaster: deps.Forecaster,
		pipeline:   fusion.New(deps.Registry, deps.Memory, deps.Analyzer, deps.Forecaster, deps.Features, config.Fusion),
		gate:       gate.New(),
		warmup:     deps.Warmup,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// #endregion engine-struct

// #region load-models
// LoadModels loads every required kind concurrently. The gate opens only
// after all loads succeed and the forecaster is primed; any failure fails
// the gate permanently and is returned.
func (e *Engine) LoadModels(ctx context.Context) error {
	if e.gate.State() != gate.NotReady {
		return e.gate.Check()
	}

	for _, kind := range e.config.Required {
		if e.config.Sources[kind] == "" {
			err := &registry.LoadError{Kind: kind, Err: errors.New("no source configured")}
			e.fail(err)
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range e.config.Required {
		g.Go(func() error {
			_, err := e.registry.Load(gctx, kind, e.config.Sources[kind])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		e.fail(err)
		return err
	}

	if err := e.forecaster.Prime(ctx, e.pipeline); err != nil {
		err = fmt.Errorf("prime forecaster: %w", err)
		e.fail(err)
		return err
	}

	e.gate.MarkReady()
	e.metrics.SetReady(true)
	e.logger.Info().Int("models", len(e.config.Required)).Msg("engine ready")

	e.warm(ctx)
	return nil
}

func (e *Engine) fail(err error) {
	e.gate.MarkFailed(err.Error())
	e.metrics.SetReady(false)
	e.logger.Error().Err(err).Msg("engine failed to become ready")
}

// #endregion load-models

// #region warm
// warm re-encodes recent history into context memory. Failures are logged
// and leave memory empty.
func (e *Engine) warm(ctx context.Context) {
	if e.warmup == nil || e.config.Warmup <= 0 {
		return
	}
	texts, err := e.warmup.RecentTexts(ctx, min(e.config.Warmup, e.memory.Cap()))
	if err != nil {
		e.logger.Warn().Err(err).Msg("warmup: read history")
		return
	}
	if err := e.Warm(ctx, texts); err != nil {
		e.logger.Warn().Err(err).Msg("warmup: encode history")
		return
	}
	e.logger.Info().Int("entries", e.memory.Len()).Msg("context memory warmed")
}

// Warm encodes texts, oldest first, and restores them as context memory.
// Memory is only replaced if every text encodes.
func (e *Engine) Warm(ctx context.Context, texts []string) error {
	if err := e.gate.Check(); err != nil {
		return err
	}
	entries := make([]memory.Entry, 0, len(texts))
	for _, text := range texts {
		vec, err := e.pipeline.Embed(ctx, text)
		if err != nil {
			return err
		}
		entries = append(entries, memory.Entry{Text: text, Embedding: vec, At: time.Now()})
	}
	e.memory.Restore(entries)
	e.metrics.SetContextEntries(e.memory.Len())
	return nil
}

// #endregion warm

// #region process
// ProcessRequest gates, routes and runs one request.
func (e *Engine) ProcessRequest(ctx context.Context, req router.Request) (fusion.Result, error) {
	start := time.Now()
	label := req.Modality
	if label == "" {
		label = string(modality.Text)
	}

	res, err := e.process(ctx, req)

	class := Classify(err)
	if class == ClassUnsupported {
		label = "unsupported"
	}
	e.metrics.ObserveRequest(label, class, time.Since(start))
	if err != nil {
		e.logger.Warn().Err(err).Str("modality", label).Str("class", class).Msg("request rejected")
		return fusion.Result{}, err
	}
	e.metrics.SetContextEntries(e.memory.Len())
	e.logger.Debug().Str("id", res.ID).Str("modality", label).Dur("elapsed", time.Since(start)).Msg("request processed")
	return res, nil
}

func (e *Engine) process(ctx context.Context, req router.Request) (fusion.Result, error) {
	if err := e.gate.Check(); err != nil {
		return fusion.Result{}, err
	}
	return router.Dispatch(ctx, e.pipeline, req)
}

// Process is ProcessRequest for a plain text-or-named-modality input.
func (e *Engine) Process(ctx context.Context, input, modalityName string, reqContext map[string]any) (fusion.Result, error) {
	return e.ProcessRequest(ctx, router.Request{Input: input, Modality: modalityName, Context: reqContext})
}

// #endregion process

// #region accessors
// Ready reports whether the gate is open.
func (e *Engine) Ready() bool {
	return e.gate.State() == gate.Ready
}

// Gate exposes the readiness gate for waiting on startup.
func (e *Engine) Gate() *gate.Readiness {
	return e.gate
}

// Memory returns the context memory.
func (e *Engine) Memory() *memory.Memory {
	return e.memory
}

// Status reports readiness, model handles and memory occupancy.
func (e *Engine) Status() Status {
	return Status{
		State:           e.gate.State(),
		Reason:          e.gate.Reason(),
		Models:          e.registry.Handles(),
		ContextEntries:  e.memory.Len(),
		ContextCapacity: e.memory.Cap(),
	}
}

// #endregion accessors
