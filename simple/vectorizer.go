package simple

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingVectorizer maps texts to fixed size bag-of-words vectors. Tokens are
// lowercased runs of letters and digits, hashed with FNV-1a into Dims buckets;
// each vector is L2 normalized.
type HashingVectorizer struct {
	Dims int
}

// NewHashingVectorizer returns a vectorizer with dims buckets.
func NewHashingVectorizer(dims int) *HashingVectorizer {
	return &HashingVectorizer{Dims: dims}
}

// Tokenize splits a text into lowercase word tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Transform vectorizes every text. It matches datasets.Vectorizer.
func (v *HashingVectorizer) Transform(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = v.vector(text)
	}
	return out
}

func (v *HashingVectorizer) vector(text string) []float32 {
	vec := make([]float32, v.Dims)
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(v.Dims)]++
	}
	var norm float64
	for _, x := range vec {
		norm += float64(x * x)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
