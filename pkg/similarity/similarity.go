// Package similarity provides the lexical scoring primitives used by the
// observation compressor and the session search ranker: Jaccard overlap over
// whitespace tokens, and TF cosine over normalized term vectors. The two
// metrics are deliberately separate; they tokenize differently and serve
// different callers.
package similarity

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases s and splits it on whitespace. Punctuation is kept
// attached to its word ("loading..." is one token).
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// TokenizeStrict lower-cases s, drops every rune that is not a letter, digit
// or underscore, then splits on whitespace. Used by the search ranker so that
// "deploy," and "deploy" count as the same term.
func TokenizeStrict(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B| over the whitespace token sets of a and b.
// The result is in [0,1]; two empty strings score 0, not 1.
func Jaccard(a, b string) float64 {
	setA := tokenSet(Tokenize(a))
	setB := tokenSet(Tokenize(b))

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
