package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/rahl-ai/rahl-core/internal/cache"
	"github.com/rahl-ai/rahl-core/internal/codec"
	"github.com/rahl-ai/rahl-core/internal/config"
	"github.com/rahl-ai/rahl-core/internal/emotion"
	"github.com/rahl-ai/rahl-core/internal/engine"
	"github.com/rahl-ai/rahl-core/internal/history"
	"github.com/rahl-ai/rahl-core/internal/logging"
	"github.com/rahl-ai/rahl-core/internal/maintenance"
	"github.com/rahl-ai/rahl-core/internal/memory"
	"github.com/rahl-ai/rahl-core/internal/metrics"
	"github.com/rahl-ai/rahl-core/internal/orchestrator"
	"github.com/rahl-ai/rahl-core/internal/predict"
	"github.com/rahl-ai/rahl-core/internal/realtime"
	"github.com/rahl-ai/rahl-core/internal/registry"
	"github.com/rahl-ai/rahl-core/internal/security"
)

// #region app
// App holds every long-lived component. It is built once per command and
// passed down; nothing here is global.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	History  *history.Store
	Events   *logging.EventLog
	Security *security.Manager
	Cache    cache.Cache

	Codec  *codec.Client
	Engine *engine.Engine

	Recorder     *history.Recorder
	Realtime     *realtime.Client
	Maintenance  *maintenance.Scheduler
	Orchestrator *orchestrator.Orchestrator
}

// newApp opens storage and builds the engine and background workers. The
// orchestrator is created by wire once the UI is known.
func newApp(cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.Log)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a := &App{Config: cfg, Logger: logger, Registry: reg, Metrics: m}

	store, err := history.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.History = store

	if a.Events, err = logging.NewEventLog(store.DB()); err != nil {
		a.Close()
		return nil, err
	}
	a.Security = security.NewManager(cfg.Security, store.DB(), logger)
	if a.Cache, err = cache.New(cfg.Cache, store.DB()); err != nil {
		a.Close()
		return nil, err
	}

	if a.Codec, err = codec.NewClient(cfg.Inference.Addr); err != nil {
		a.Close()
		return nil, err
	}
	models := registry.New(a.Codec, cfg.RegistryConfig(), m, logger.With().Str("component", "registry").Logger())
	a.Engine = engine.New(cfg.EngineConfig(), engine.Deps{
		Registry:   models,
		Memory:     memory.New(cfg.Memory.Capacity),
		Analyzer:   emotion.NewLexicon(),
		Forecaster: predict.NewPrototype(cfg.Predict, predict.DefaultPrototypes()),
		Warmup:     store,
		Metrics:    m,
		Logger:     logger,
	})

	a.Recorder = history.NewRecorder(store, 0, logger)
	a.Realtime = realtime.New(cfg.Realtime, logger)
	a.Maintenance, err = maintenance.New(cfg.Maintenance, logger,
		maintenance.Target{Name: "history", Pruner: store},
		maintenance.Target{Name: "cache", Pruner: a.Cache},
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// wire builds the orchestrator around ui.
func (a *App) wire(ui orchestrator.UI) {
	a.Orchestrator = orchestrator.New(orchestrator.Deps{
		Security:   a.Security,
		Cache:      a.Cache,
		AI:         &boundedAI{Engine: a.Engine, timeout: a.Config.Inference.LoadTimeout},
		UI:         ui,
		Background: []orchestrator.Background{a.Recorder, a.Realtime, a.Maintenance},
		Listeners:  []orchestrator.Listener{a.Realtime},
		Recorder:   a.Recorder,
		Publisher:  a.Realtime,
		Events:     a.Events,
		Metrics:    a.Metrics,
		Logger:     a.Logger,
	})
}

// Close stops workers and releases storage. Safe on a partly built App.
func (a *App) Close() {
	if a.Maintenance != nil {
		a.Maintenance.Stop()
	}
	if a.Realtime != nil {
		a.Realtime.Close()
	}
	if a.Recorder != nil {
		a.Recorder.Stop()
	}
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.Codec != nil {
		a.Codec.Close()
	}
	if a.History != nil {
		a.History.Close()
	}
}

// #endregion app

// #region bounded-ai
// boundedAI caps model loading and warm-up at timeout.
type boundedAI struct {
	*engine.Engine
	timeout time.Duration
}

func (b *boundedAI) LoadModels(ctx context.Context) error {
	if b.timeout <= 0 {
		return b.Engine.LoadModels(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.Engine.LoadModels(ctx)
}

// #endregion bounded-ai
