package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rahl-ai/rahl-core/internal/emotion"
	"github.com/rahl-ai/rahl-core/internal/fusion"
	"github.com/rahl-ai/rahl-core/internal/gate"
	"github.com/rahl-ai/rahl-core/internal/memory"
	"github.com/rahl-ai/rahl-core/internal/metrics"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/predict"
	"github.com/rahl-ai/rahl-core/internal/registry"
)

// #region config
// Config names where each model kind is loaded from.
type Config struct {
	Sources  map[modality.ModelKind]string
	Required []modality.ModelKind // nil means every kind
	Fusion   fusion.Config
	Warmup   int // history entries restored into memory once ready; 0 disables
}

// #endregion config

// #region deps
// Forecaster is a predict.Forecaster that must be primed with the text
// encoder before use.
type Forecaster interface {
	predict.Forecaster
	Prime(ctx context.Context, embedder predict.Embedder) error
}

// WarmupSource supplies recent inputs, oldest first, to seed context memory.
type WarmupSource interface {
	RecentTexts(ctx context.Context, limit int) ([]string, error)
}

// Deps are the engine's collaborators. Only Registry is mandatory.
type Deps struct {
	Registry   *registry.Registry
	Memory     *memory.Memory
	Analyzer   emotion.Analyzer
	Forecaster Forecaster
	Features   fusion.FeatureAnalyzer
	Warmup     WarmupSource
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

// #endregion deps

// #region status
// Status is a point-in-time view of readiness and context memory.
type Status struct {
	State           gate.State        `json:"state"`
	Reason          string            `json:"reason,omitempty"`
	Models          []registry.Handle `json:"models"`
	ContextEntries  int               `json:"context_entries"`
	ContextCapacity int               `json:"context_capacity"`
}

// #endregion status
