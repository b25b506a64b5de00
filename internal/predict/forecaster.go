package predict

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// #region prototype-struct
// Prototype forecasts intents by cosine similarity between the fused vector
// and an embedding of each intent's prototype text.
type Prototype struct {
	config     Config
	prototypes map[string]string

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewPrototype creates an unprimed forecaster. A nil prototypes map selects
// DefaultPrototypes.
func NewPrototype(config Config, prototypes map[string]string) *Prototype {
	if prototypes == nil {
		prototypes = DefaultPrototypes()
	}
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	return &Prototype{config: config, prototypes: prototypes}
}

// #endregion prototype-struct

// #region prime
// Prime encodes every prototype. It replaces any earlier priming only when
// all encodes succeed.
func (p *Prototype) Prime(ctx context.Context, embedder Embedder) error {
	vectors := make(map[string][]float32, len(p.prototypes))
	for label, text := range p.prototypes {
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("prime %s: %w", label, err)
		}
		vectors[label] = vec
	}
	p.mu.Lock()
	p.vectors = vectors
	p.mu.Unlock()
	return nil
}

// Primed reports whether Prime has succeeded.
func (p *Prototype) Primed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vectors != nil
}

// #endregion prime

// #region forecast
// Forecast returns the TopK intents. Labels named by context["intent_hint"]
// (a string or list of strings) get HintBoost added before ranking.
func (p *Prototype) Forecast(_ context.Context, vec []float32, reqContext map[string]any) (Set, error) {
	p.mu.RLock()
	vectors := p.vectors
	p.mu.RUnlock()
	if vectors == nil {
		return Set{}, ErrNotPrimed
	}

	hints := intentHints(reqContext)
	basis := "cosine"
	items := make([]Prediction, 0, len(vectors))
	for label, proto := range vectors {
		score := clamp(cosineSimilarity(vec, proto))
		if hints[label] {
			score = clamp(score + p.config.HintBoost)
			basis = "cosine+hint"
		}
		items = append(items, Prediction{Label: label, Score: score})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Label < items[j].Label
	})
	if len(items) > p.config.TopK {
		items = items[:p.config.TopK]
	}
	return Set{Items: items, Basis: basis}, nil
}

func intentHints(reqContext map[string]any) map[string]bool {
	hints := make(map[string]bool)
	switch v := reqContext["intent_hint"].(type) {
	case string:
		hints[v] = true
	case []string:
		for _, s := range v {
			hints[s] = true
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				hints[s] = true
			}
		}
	}
	return hints
}

// #endregion forecast

// #region helpers
// cosineSimilarity returns 0 for zero-length, mismatched or zero vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

func clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
