package emotion

import (
	"context"
	"strings"
)

// #region lexicon-data
type lexiconEntry struct {
	label   Label
	words   []string
	phrases []string
}

// defaultLexicon is ordered; ties resolve to the earlier label.
var defaultLexicon = []lexiconEntry{
	{Joy, []string{"happy", "glad", "great", "love", "awesome", "excited", "wonderful", "fun", "proud", "yay"},
		[]string{"feel good", "so happy", "can't wait"}},
	{Sadness, []string{"sad", "lonely", "depressed", "miss", "hurt", "cry", "unhappy", "lost", "tired"},
		[]string{"feel down", "feel lost", "feel alone"}},
	{Anger, []string{"angry", "hate", "furious", "annoyed", "frustrated", "mad", "unfair", "stupid"},
		[]string{"fed up", "sick of"}},
	{Fear, []string{"scared", "afraid", "anxious", "worried", "nervous", "panic", "terrified"},
		[]string{"feel trapped", "what if"}},
	{Gratitude, []string{"thanks", "thank", "grateful", "appreciate", "thankful"},
		[]string{"thank you"}},
}

// #endregion lexicon-data

// #region lexicon
// Lexicon is a keyword-based Analyzer. It makes no model call.
type Lexicon struct {
	entries []lexiconEntry
}

// NewLexicon returns an Analyzer over the built-in English lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{entries: defaultLexicon}
}

// Analyze counts word and phrase hits per label. The label with the most hits
// wins; its score is its share of all hits. No hits yields Neutral with score 0.
func (l *Lexicon) Analyze(_ context.Context, text string) (Signal, error) {
	lower := strings.ToLower(text)
	tokens := tokenize(text)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}

	hits := make([]int, len(l.entries))
	total := 0
	for i, e := range l.entries {
		for _, w := range e.words {
			if set[w] {
				hits[i]++
			}
		}
		for _, p := range e.phrases {
			if strings.Contains(lower, p) {
				hits[i]++
			}
		}
		total += hits[i]
	}
	if total == 0 {
		return Signal{Label: Neutral}, nil
	}

	best := 0
	scores := make(map[Label]float32)
	for i, e := range l.entries {
		if hits[i] == 0 {
			continue
		}
		scores[e.label] = float32(hits[i]) / float32(total)
		if hits[i] > hits[best] {
			best = i
		}
	}
	return Signal{
		Label:  l.entries[best].label,
		Score:  scores[l.entries[best].label],
		Scores: scores,
	}, nil
}

// #endregion lexicon
