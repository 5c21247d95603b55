package embed

import (
	"hash/fnv"
)

const defaultHashDimension = 64

// Hash is a training-free embedder that buckets tokens into a fixed
// number of dimensions by FNV-1a hash. It is much weaker than TFIDF
// but never needs retraining, which makes it useful for stores that
// mutate constantly or must share persisted vectors across processes.
type Hash struct {
	dimension int
}

// NewHash returns a hash embedder with the given dimension.
// Non-positive dimensions fall back to the default of 64.
func NewHash(dimension int) *Hash {
	if dimension <= 0 {
		dimension = defaultHashDimension
	}
	return &Hash{dimension: dimension}
}

func (e *Hash) Embed(text string) []float64 {
	v := make([]float64, e.dimension)
	toks := Tokenize(text)
	if len(toks) == 0 {
		return v
	}
	for _, tok := range toks {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum64()%uint64(e.dimension)]++
	}
	return Normalize(v)
}

func (e *Hash) Dimension() int {
	return e.dimension
}

func (e *Hash) Provider() string { return "hash" }
