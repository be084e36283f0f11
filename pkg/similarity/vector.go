package similarity

import "math"

// Vector is a sparse term-frequency vector keyed by token.
type Vector map[string]float64

// TermVector counts token occurrences into a raw (unnormalized) vector.
func TermVector(tokens []string) Vector {
	v := make(Vector, len(tokens))
	for _, tok := range tokens {
		v[tok]++
	}
	return v
}

// Normalize scales v to unit L2 length in place and returns it. A zero
// vector is returned unchanged.
func (v Vector) Normalize() Vector {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for tok, w := range v {
		v[tok] = w / norm
	}
	return v
}

// Cosine returns the dot product of two normalized vectors, clamped to
// [0,1]. Callers are expected to Normalize both sides first; only the
// smaller vector is iterated.
func Cosine(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for tok, w := range a {
		dot += w * b[tok]
	}
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}
