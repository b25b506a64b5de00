package emotion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, text string) Signal {
	t.Helper()
	sig, err := NewLexicon().Analyze(context.Background(), text)
	require.NoError(t, err)
	return sig
}

func TestAnalyze_Empty(t *testing.T) {
	sig := analyze(t, "")
	assert.Equal(t, Neutral, sig.Label)
	assert.Zero(t, sig.Score)
	assert.Nil(t, sig.Scores)
}

func TestAnalyze_NoEvidence(t *testing.T) {
	sig := analyze(t, "hello")
	assert.Equal(t, Neutral, sig.Label)
}

func TestAnalyze_SingleLabel(t *testing.T) {
	sig := analyze(t, "I am so happy today, this is awesome!")
	assert.Equal(t, Joy, sig.Label)
	assert.Equal(t, float32(1), sig.Score)
}

func TestAnalyze_Mixed(t *testing.T) {
	sig := analyze(t, "I'm worried and scared, but thanks for listening")
	assert.Equal(t, Fear, sig.Label)
	assert.InDelta(t, 2.0/3.0, sig.Score, 1e-6)
	assert.InDelta(t, 1.0/3.0, sig.Scores[Gratitude], 1e-6)
}

func TestAnalyze_Phrase(t *testing.T) {
	sig := analyze(t, "Thank you")
	assert.Equal(t, Gratitude, sig.Label)
}

func TestAnalyze_TieGoesToEarlierLabel(t *testing.T) {
	sig := analyze(t, "happy sad")
	assert.Equal(t, Joy, sig.Label)
	assert.Equal(t, float32(0.5), sig.Score)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"i'm", "happy"}, tokenize("I'm happy, happy!"))
	assert.Empty(t, tokenize("the a an"))
}
