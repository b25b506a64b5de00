package emotion

import (
	"strings"
	"unicode"
)

// #region stopwords
// stopwords contains common English words that never carry emotional weight.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"will": true, "would": true, "could": true, "should": true,
	"and": true, "or": true, "but": true, "if": true, "so": true,
	"at": true, "by": true, "for": true, "from": true, "in": true,
	"of": true, "on": true, "to": true, "with": true, "it": true,
	"this": true, "that": true, "you": true, "me": true, "my": true,
	"your": true, "we": true, "they": true, "he": true, "she": true,
}

// tokenize splits text into unique lowercase non-stopword tokens.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// #endregion stopwords
