package fusion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahl-ai/rahl-core/internal/codec"
	"github.com/rahl-ai/rahl-core/internal/codec/codectest"
	"github.com/rahl-ai/rahl-core/internal/emotion"
	"github.com/rahl-ai/rahl-core/internal/memory"
	"github.com/rahl-ai/rahl-core/internal/modality"
	"github.com/rahl-ai/rahl-core/internal/predict"
	"github.com/rahl-ai/rahl-core/internal/registry"
)

// #region helpers
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, *codectest.Backend) {
	t.Helper()
	ctx := context.Background()
	backend := codectest.New()
	reg := registry.New(codec.NewClientWithConn(backend), registry.DefaultConfig(), nil, zerolog.Nop())
	for _, kind := range modality.Kinds() {
		_, err := reg.Load(ctx, kind, "src")
		require.NoError(t, err)
	}

	forecaster := predict.NewPrototype(predict.DefaultConfig(), nil)
	p := New(reg, memory.New(memory.DefaultCapacity), emotion.NewLexicon(), forecaster, nil, cfg)
	require.NoError(t, forecaster.Prime(ctx, p))

	var n atomic.Int64
	p.now = func() time.Time { return fixedNow }
	p.newID = func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
	return p, backend
}

// #endregion helpers

// #region text-tests
func TestText_EmptyMemoryUsesZeroContext(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultConfig())

	res, err := p.Text(context.Background(), "hello", nil)
	require.NoError(t, err)

	emb := codectest.Embed("hello", 512)
	assert.Equal(t, emb, res.Embeddings)
	assert.Equal(t, modality.Text, res.Modality)
	assert.Equal(t, "hello", res.Input)
	assert.Equal(t, fixedNow.UnixMilli(), res.Timestamp)
	require.NotNil(t, res.Emotion)
	require.NotNil(t, res.Predictions)
	assert.NotEmpty(t, res.Predictions.Items)

	snap := p.Memory().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "hello", snap[0].Text)
	assert.Equal(t, emb, snap[0].Embedding)
}

func TestText_FusesJoinedContext(t *testing.T) {
	p, backend := newTestPipeline(t, DefaultConfig())
	ctx := context.Background()

	_, err := p.Text(ctx, "good morning", nil)
	require.NoError(t, err)
	_, err = p.Text(ctx, "how are you", nil)
	require.NoError(t, err)
	before := backend.Invokes("text")

	res, err := p.Text(ctx, "fine", nil)
	require.NoError(t, err)
	assert.Equal(t, before+2, backend.Invokes("text"))

	input := codectest.Embed("fine", 512)
	joined := codectest.Embed("good morning how are you", 512)
	for i := range input {
		assert.Equal(t, input[i]+joined[i], res.Embeddings[i])
	}

	snap := p.Memory().Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, input, snap[2].Embedding)
}

func TestText_EmptyInput(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultConfig())
	res, err := p.Text(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 512), res.Embeddings)
	assert.Equal(t, emotion.Neutral, res.Emotion.Label)
}

func TestText_Emotion(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultConfig())
	res, err := p.Text(context.Background(), "I am so happy and excited", nil)
	require.NoError(t, err)
	assert.Equal(t, emotion.Joy, res.Emotion.Label)
}

func TestText_InvokeFailureLeavesMemory(t *testing.T) {
	p, backend := newTestPipeline(t, DefaultConfig())
	backend.FailInvoke("text", errors.New("oom"))

	_, err := p.Text(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Zero(t, p.Memory().Len())
}

func TestText_DimensionMismatch(t *testing.T) {
	p, _ := newTestPipeline(t, Config{Dimension: 8})
	_, err := p.Text(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Zero(t, p.Memory().Len())
}

// #endregion text-tests

// #region image-tests
func TestImage(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultConfig())
	res, err := p.Image(context.Background(), pngHeader, nil)
	require.NoError(t, err)

	assert.Equal(t, modality.Image, res.Modality)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "person", res.Objects[0].Label)
	assert.Equal(t, float32(0.875), res.Objects[0].Score)
	require.NotNil(t, res.Features)
	assert.Equal(t, "image/png", res.Features.Format)
	assert.Equal(t, len(pngHeader), res.Features.Bytes)
	assert.Nil(t, res.Embeddings)
	assert.Zero(t, p.Memory().Len())
}

func TestImage_Empty(t *testing.T) {
	p, backend := newTestPipeline(t, DefaultConfig())
	_, err := p.Image(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.Zero(t, backend.Invokes("vision"))
}

// #endregion image-tests

// #region audio-tests
func TestAudio(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultConfig())
	res, err := p.Audio(context.Background(), []byte("thank you so much"), nil)
	require.NoError(t, err)

	assert.Equal(t, modality.Audio, res.Modality)
	require.NotNil(t, res.Transcript)
	assert.Equal(t, "thank you so much", res.Transcript.Text)
	assert.Equal(t, "thank you so much", res.Input)
	assert.Equal(t, emotion.Gratitude, res.Emotion.Label)
	assert.Equal(t, []string{"thank you so much"}, p.Memory().Texts())
}

// #endregion audio-tests

// #region multimodal-tests
func TestMultimodal(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultConfig())
	res, err := p.Multimodal(context.Background(), []Part{
		{Modality: modality.Text, Input: "look at this"},
		{Modality: modality.Image, Data: pngHeader},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, modality.Multimodal, res.Modality)
	require.Len(t, res.Parts, 2)
	assert.Equal(t, modality.Text, res.Parts[0].Modality)
	assert.Equal(t, modality.Image, res.Parts[1].Modality)
	assert.Equal(t, "look at this", res.Input)
	assert.Equal(t, 1, p.Memory().Len())
}

func TestMultimodal_PartFailure(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultConfig())
	_, err := p.Multimodal(context.Background(), []Part{
		{Modality: modality.Text, Input: "hi"},
		{Modality: modality.Audio},
	}, nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.Zero(t, p.Memory().Len())
}

func TestMultimodal_ModelFailureLeavesMemory(t *testing.T) {
	p, backend := newTestPipeline(t, DefaultConfig())
	backend.FailInvoke("vision", errors.New("oom"))

	for i := 0; i < 20; i++ {
		_, err := p.Multimodal(context.Background(), []Part{
			{Modality: modality.Text, Input: "hi"},
			{Modality: modality.Image, Data: pngHeader},
		}, nil)
		require.Error(t, err)
	}
	assert.Zero(t, p.Memory().Len())
}

func TestMultimodal_AppendsInPartOrder(t *testing.T) {
	for i := 0; i < 20; i++ {
		p, _ := newTestPipeline(t, DefaultConfig())
		res, err := p.Multimodal(context.Background(), []Part{
			{Modality: modality.Text, Input: "first"},
			{Modality: modality.Image, Data: pngHeader},
			{Modality: modality.Audio, Data: []byte("second")},
			{Modality: modality.Text, Input: "third"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, p.Memory().Texts())
		assert.Equal(t, "first second third", res.Input)
	}
}

func TestMultimodal_PartsShareStartingContext(t *testing.T) {
	p, _ := newTestPipeline(t, DefaultConfig())
	res, err := p.Multimodal(context.Background(), []Part{
		{Modality: modality.Text, Input: "alpha"},
		{Modality: modality.Text, Input: "beta"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, codectest.Embed("alpha", 512), res.Parts[0].Embeddings)
	assert.Equal(t, codectest.Embed("beta", 512), res.Parts[1].Embeddings)
}

func TestValidateParts(t *testing.T) {
	assert.ErrorIs(t, ValidateParts(nil), ErrNoParts)
	assert.ErrorIs(t, ValidateParts([]Part{{Modality: modality.Multimodal}}), modality.ErrUnsupported)
	assert.ErrorIs(t, ValidateParts([]Part{{Modality: "smell"}}), modality.ErrUnsupported)
	assert.NoError(t, ValidateParts([]Part{{Modality: modality.Audio, Data: []byte("x")}}))
}

// #endregion multimodal-tests

func TestEntropy(t *testing.T) {
	assert.Zero(t, entropy(nil))
	assert.Zero(t, entropy([]byte("aaaa")))
	assert.InDelta(t, 1.0, entropy([]byte("abab")), 1e-9)
}
