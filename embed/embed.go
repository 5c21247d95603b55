// Package embed provides offline text embedders and the similarity
// functions used to compare their output. No provider in this package
// talks to a network service.
package embed

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	// Embed maps text to a vector. Implementations must be safe for
	// concurrent use.
	Embed(text string) []float64

	// Dimension returns the current vector length.
	Dimension() int

	// Provider returns the embedder name.
	Provider() string
}

// Trainable is implemented by embedders whose vector space depends on a
// corpus. Callers must re-embed stored vectors after Train; vectors from
// different trainings are not comparable.
type Trainable interface {
	Train(docs []string)
}

// New creates an embedder by provider name: "tfidf" or "hash".
// Unknown names fall back to TF-IDF.
func New(provider string) Embedder {
	switch provider {
	case "hash":
		return NewHash(0)
	case "tfidf":
		fallthrough
	default:
		return NewTFIDF()
	}
}
