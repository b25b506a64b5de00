package fusion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rahl-ai/rahl-core/internal/codec"
	"github.com/rahl-ai/rahl-core/internal/emotion"
	"github.com/rahl-ai/rahl-core/internal/memory"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/predict"
)

// #region pipeline-struct
// Pipeline turns model outputs into Results. Context memory is the only state
// it mutates.
type Pipeline struct {
	invoker    Invoker
	memory     *memory.Memory
	analyzer   emotion.Analyzer
	forecaster predict.Forecaster
	features   FeatureAnalyzer
	config     Config

	now   func() time.Time
	newID func() string
}

// New builds a pipeline. A nil features analyzer selects ImageStats.
func New(
	invoker Invoker,
	mem *memory.Memory,
	analyzer emotion.Analyzer,
	forecaster predict.Forecaster,
	features FeatureAnalyzer,
	config Config,
) *Pipeline {
	if features == nil {
		features = ImageStats{}
	}
	if config.Dimension <= 0 {
		config.Dimension = DefaultConfig().Dimension
	}
	return &Pipeline{
		invoker:    invoker,
		memory:     mem,
		analyzer:   analyzer,
		forecaster: forecaster,
		features:   features,
		config:     config,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Memory returns the context memory the pipeline reads and appends to.
func (p *Pipeline) Memory() *memory.Memory {
	return p.memory
}

// #endregion pipeline-struct

// #region embed
// Embed encodes text with the text model.
func (p *Pipeline) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := p.invoker.Invoke(ctx, modality.KindText, map[string]any{"text": text})
	if err != nil {
		return nil, err
	}
	return codec.DecodeEmbedding(out)
}

// #endregion embed

// #region text
// Text runs the text fusion path. The remembered texts are joined and
// re-encoded on every call; the encoder is not assumed linear, so per-entry
// sums are not substituted.
func (p *Pipeline) Text(ctx context.Context, input string, reqContext map[string]any) (Result, error) {
	res, entry, err := p.text(ctx, input, reqContext)
	if err != nil {
		return Result{}, err
	}
	p.memory.Append(entry)
	return res, nil
}

// text computes a text result and the memory entry it would add, without
// appending it.
func (p *Pipeline) text(ctx context.Context, input string, reqContext map[string]any) (Result, memory.Entry, error) {
	embeddings, err := p.Embed(ctx, input)
	if err != nil {
		return Result{}, memory.Entry{}, fmt.Errorf("encode input: %w", err)
	}

	var contextEmbeddings []float32
	if texts := p.memory.Texts(); len(texts) > 0 {
		contextEmbeddings, err = p.Embed(ctx, strings.Join(texts, " "))
		if err != nil {
			return Result{}, memory.Entry{}, fmt.Errorf("encode context: %w", err)
		}
	} else {
		contextEmbeddings = make([]float32, p.config.Dimension)
	}

	combined, err := add(embeddings, contextEmbeddings)
	if err != nil {
		return Result{}, memory.Entry{}, err
	}

	signal, err := p.analyzer.Analyze(ctx, input)
	if err != nil {
		return Result{}, memory.Entry{}, fmt.Errorf("analyze emotion: %w", err)
	}
	predictions, err := p.forecaster.Forecast(ctx, combined, reqContext)
	if err != nil {
		return Result{}, memory.Entry{}, fmt.Errorf("forecast: %w", err)
	}

	now := p.now()
	return Result{
		ID:          p.newID(),
		Modality:    modality.Text,
		Input:       input,
		Embeddings:  combined,
		Emotion:     &signal,
		Predictions: &predictions,
		Timestamp:   now.UnixMilli(),
	}, memory.Entry{Text: input, Embedding: embeddings, At: now}, nil
}

func add(a, b []float32) ([]float32, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out, nil
}

// #endregion text

// #region image
// Image runs detection and feature analysis. Context memory is neither read
// nor written.
func (p *Pipeline) Image(ctx context.Context, data []byte, _ map[string]any) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("image: %w", ErrEmptyPayload)
	}
	out, err := p.invoker.Invoke(ctx, modality.KindVision, map[string]any{"image": data})
	if err != nil {
		return Result{}, fmt.Errorf("detect: %w", err)
	}
	objects, err := codec.DecodeDetections(out)
	if err != nil {
		return Result{}, err
	}
	features, err := p.features.Analyze(ctx, data)
	if err != nil {
		return Result{}, fmt.Errorf("analyze features: %w", err)
	}
	return Result{
		ID:        p.newID(),
		Modality:  modality.Image,
		Objects:   objects,
		Features:  &features,
		Timestamp: p.now().UnixMilli(),
	}, nil
}

// #endregion image

// #region audio
// Audio transcribes the clip and runs the text path on the transcript.
func (p *Pipeline) Audio(ctx context.Context, data []byte, reqContext map[string]any) (Result, error) {
	res, entry, err := p.audio(ctx, data, reqContext)
	if err != nil {
		return Result{}, err
	}
	p.memory.Append(entry)
	return res, nil
}

func (p *Pipeline) audio(ctx context.Context, data []byte, reqContext map[string]any) (Result, memory.Entry, error) {
	if len(data) == 0 {
		return Result{}, memory.Entry{}, fmt.Errorf("audio: %w", ErrEmptyPayload)
	}
	out, err := p.invoker.Invoke(ctx, modality.KindAudio, map[string]any{"audio": data})
	if err != nil {
		return Result{}, memory.Entry{}, fmt.Errorf("transcribe: %w", err)
	}
	transcript, err := codec.DecodeTranscript(out)
	if err != nil {
		return Result{}, memory.Entry{}, err
	}
	res, entry, err := p.text(ctx, transcript.Text, reqContext)
	if err != nil {
		return Result{}, memory.Entry{}, err
	}
	res.Modality = modality.Audio
	res.Transcript = &transcript
	return res, entry, nil
}

// #endregion audio

// #region multimodal
// Multimodal processes each part concurrently against the memory as it stood
// when the request arrived. The first failure cancels the remaining parts.
// Memory entries are appended in part order, and only when every part
// succeeds.
func (p *Pipeline) Multimodal(ctx context.Context, parts []Part, reqContext map[string]any) (Result, error) {
	if err := ValidateParts(parts); err != nil {
		return Result{}, err
	}

	results := make([]Result, len(parts))
	entries := make([]*memory.Entry, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		g.Go(func() error {
			var (
				entry memory.Entry
				err   error
			)
			switch part.Modality {
			case modality.Text:
				results[i], entry, err = p.text(gctx, part.Input, reqContext)
				entries[i] = &entry
			case modality.Image:
				results[i], err = p.Image(gctx, part.Data, reqContext)
			case modality.Audio:
				results[i], entry, err = p.audio(gctx, part.Data, reqContext)
				entries[i] = &entry
			}
			if err != nil {
				return fmt.Errorf("part %d (%s): %w", i, part.Modality, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var inputs []string
	for i, r := range results {
		if entries[i] != nil {
			p.memory.Append(*entries[i])
		}
		if r.Input != "" {
			inputs = append(inputs, r.Input)
		}
	}
	return Result{
		ID:        p.newID(),
		Modality:  modality.Multimodal,
		Input:     strings.Join(inputs, " "),
		Parts:     results,
		Timestamp: p.now().UnixMilli(),
	}, nil
}

// ValidateParts rejects empty part lists and nested or unknown modalities.
func ValidateParts(parts []Part) error {
	if len(parts) == 0 {
		return ErrNoParts
	}
	for _, part := range parts {
		switch part.Modality {
		case modality.Text, modality.Image, modality.Audio:
		default:
			return &modality.UnsupportedError{Name: string(part.Modality)}
		}
	}
	return nil
}

// #endregion multimodal
