package recall

import "errors"

var (
	// ErrNotFound reports an id that is not in the store.
	ErrNotFound = errors.New("item not found")

	// ErrPersistence reports a failed backend write. The in-memory
	// store has already applied the mutation; the engine keeps working
	// memory-only.
	ErrPersistence = errors.New("persistence failed")
)

// Meta carries caller-supplied annotations for an item. All fields are
// optional; Extra holds anything that does not fit the named ones.
type Meta struct {
	Timestamp string            `json:"timestamp,omitempty"`
	Source    string            `json:"source,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Item is one stored text with its embedding and access bookkeeping.
// DateCreated and LastAccess are epoch milliseconds.
type Item struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Embedding   []float64 `json:"embedding,omitempty"`
	Meta        Meta      `json:"meta"`
	DateCreated int64     `json:"date_created"`
	LastAccess  int64     `json:"last_access"`
	AccessCount int64     `json:"access_count"`
}

// ScoredItem pairs an Item with its similarity to a query.
type ScoredItem struct {
	Item
	Score float64 `json:"score"`
}

// Stats summarizes the engine state.
type Stats struct {
	TotalItems     int `json:"total_items"`
	VocabularySize int `json:"vocabulary_size"`
}
