package embed

import (
	"math"
	"sort"
	"sync"
)

// TFIDF is an offline bag-of-words embedder. Train builds a vocabulary
// from a corpus; Embed maps text to a unit-length term-frequency vector
// weighted by inverse document frequency. Vectors are only comparable
// when produced by the same trained vocabulary.
type TFIDF struct {
	mu    sync.RWMutex
	vocab map[string]int
	idf   []float64
}

func NewTFIDF() *TFIDF {
	return &TFIDF{vocab: make(map[string]int)}
}

// Train replaces the current vocabulary with one built from docs.
// Terms are indexed in sorted order so vector positions are stable
// across runs. IDF is ln(N/df); a term present in every document
// weighs zero.
func (t *TFIDF) Train(docs []string) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	total := float64(len(docs))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log(total / float64(df[term]))
	}

	t.mu.Lock()
	t.vocab = vocab
	t.idf = idf
	t.mu.Unlock()
}

// Embed returns the TF-IDF vector of text over the trained vocabulary,
// L2-normalized. Unknown terms are ignored; text with no known terms
// embeds to the zero vector. Before any Train the vector is empty.
func (t *TFIDF) Embed(text string) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v := make([]float64, len(t.idf))
	if len(v) == 0 {
		return v
	}

	known := false
	for _, tok := range Tokenize(text) {
		if i, ok := t.vocab[tok]; ok {
			v[i]++
			known = true
		}
	}
	if !known {
		return v
	}
	for i := range v {
		v[i] *= t.idf[i]
	}
	return Normalize(v)
}

func (t *TFIDF) Dimension() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.idf)
}

func (t *TFIDF) VocabularySize() int {
	return t.Dimension()
}

// Trained reports whether Train has produced a non-empty vocabulary.
func (t *TFIDF) Trained() bool {
	return t.Dimension() > 0
}

func (t *TFIDF) Provider() string { return "tfidf" }
