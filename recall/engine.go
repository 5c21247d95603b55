// Package recall implements an offline semantic retrieval engine: a
// capacity-bounded in-memory item store ranked by TF-IDF cosine
// similarity, deduplicated by token overlap, with context assembly and
// optional write-through persistence via the storage package.
package recall

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"recallgo/embed"
	"recallgo/storage"
)

// Engine owns the embedder, the item store and the storage manager.
// All exported methods are safe for concurrent use; a retrain blocks
// reads while it swaps the vocabulary and re-embeds the store.
type Engine struct {
	mu sync.RWMutex

	cfg      Config
	embedder embed.Embedder

	items []*Item
	index map[string]int // id -> position in items

	// dirty marks the vocabulary stale relative to the stored texts
	dirty bool

	Storage *storage.Manager
	Indexer *Indexer

	logger     *slog.Logger
	storageErr error
}

type Option func(*Engine)

func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:   DefaultConfig(),
		index: make(map[string]int),
	}

	for _, opt := range opts {
		opt(e)
	}

	// Defaults
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.embedder == nil {
		e.embedder = embed.New(e.cfg.Embedder)
	}
	if e.Storage == nil {
		e.Storage = storage.NewManager()
	}
	e.Indexer = NewIndexer(e)

	if e.storageErr != nil {
		e.logger.Warn("storage connection not usable, running memory-only", "err", e.storageErr)
	}
	return e
}

// WithConfig replaces the whole config. Out-of-range fields fall back
// to their defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		cfg.applyDefaults()
		e.cfg = cfg
	}
}

// WithCapacity bounds the store to n items.
func WithCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cfg.Capacity = n
		}
	}
}

// WithEmbedder overrides the embedder built from the config.
func WithEmbedder(em embed.Embedder) Option {
	return func(e *Engine) { e.embedder = em }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStorageConn enables write-through persistence on conn, which must
// be a connection type the storage registry knows (*sql.DB for SQLite
// and Postgres, *mongo.Database for MongoDB). An unusable connection is
// logged and the engine runs memory-only.
func WithStorageConn(conn any) Option {
	return func(e *Engine) {
		e.Storage = storage.NewManager()
		e.storageErr = e.Storage.Start(conn)
	}
}

// Insert stores text under a fresh id and returns it. The item is
// embedded with the current vocabulary; the next Search retrains if
// needed. The item stays in memory even when persistence fails.
func (e *Engine) Insert(text string, meta Meta) (string, error) {
	id := uuid.New().String()
	return id, e.put(id, text, meta)
}

// InsertWithID stores text under id, overwriting any existing item in
// place. An empty id gets a generated one.
func (e *Engine) InsertWithID(id, text string, meta Meta) error {
	if id == "" {
		id = uuid.New().String()
	}
	return e.put(id, text, meta)
}

// InsertAsync queues text for background insertion and returns the id
// it will be stored under once an indexer worker picks it up.
func (e *Engine) InsertAsync(text string, meta Meta) string {
	id := uuid.New().String()
	e.Indexer.Enqueue(IndexInput{ID: id, Text: text, Meta: meta})
	return id
}

func (e *Engine) put(id, text string, meta Meta) error {
	now := nowMillis()

	e.mu.Lock()
	var evictedIDs []string
	var rec storage.ItemRecord

	if pos, ok := e.index[id]; ok {
		it := e.items[pos]
		it.Text = text
		it.Meta = meta
		it.LastAccess = now
		it.Embedding = e.embedder.Embed(text)
		rec = itemRecord(it)
	} else {
		for len(e.items) >= e.cfg.Capacity && len(e.items) > 0 {
			evictedIDs = append(evictedIDs, e.evictOneLocked())
		}
		it := &Item{
			ID:          id,
			Text:        text,
			Meta:        meta,
			Embedding:   e.embedder.Embed(text),
			DateCreated: now,
			LastAccess:  now,
		}
		e.index[id] = len(e.items)
		e.items = append(e.items, it)
		rec = itemRecord(it)
	}
	e.dirty = true
	e.mu.Unlock()

	for _, victim := range evictedIDs {
		if err := e.persistDelete(victim); err != nil {
			// orphaned rows are reclaimed by the next Load
			e.logger.Warn("failed to delete evicted item", "id", victim, "err", err)
		}
	}
	return e.persistUpsert(rec)
}

// evictOneLocked removes the least recently accessed item and returns
// its id. Ties keep the oldest store position.
func (e *Engine) evictOneLocked() string {
	victim := 0
	for i, it := range e.items {
		if it.LastAccess < e.items[victim].LastAccess {
			victim = i
		}
	}
	id := e.items[victim].ID
	e.removeAtLocked(victim)
	e.logger.Debug("evicted least recently used item", "id", id)
	return id
}

func (e *Engine) removeAtLocked(pos int) {
	id := e.items[pos].ID
	e.items = append(e.items[:pos], e.items[pos+1:]...)
	delete(e.index, id)
	for i := pos; i < len(e.items); i++ {
		e.index[e.items[i].ID] = i
	}
}

// Get returns the item with id. A hit counts as an access.
func (e *Engine) Get(id string) (Item, bool) {
	now := nowMillis()

	e.mu.Lock()
	pos, ok := e.index[id]
	if !ok {
		e.mu.Unlock()
		return Item{}, false
	}
	it := e.items[pos]
	it.LastAccess = now
	it.AccessCount++
	snap := *it
	e.mu.Unlock()

	if err := e.persistTouch([]string{id}, now); err != nil {
		e.logger.Warn("failed to persist access update", "id", id, "err", err)
	}
	return snap, true
}

// Remove deletes the item with id. Returns ErrNotFound when absent.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	pos, ok := e.index[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.removeAtLocked(pos)
	e.dirty = true
	e.mu.Unlock()

	return e.persistDelete(id)
}

// List returns a snapshot of all items in store order.
func (e *Engine) List() []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Item, 0, len(e.items))
	for _, it := range e.items {
		out = append(out, *it)
	}
	return out
}

// Clear drops every item, in memory and in the backend.
func (e *Engine) Clear() error {
	e.mu.Lock()
	e.items = nil
	e.index = make(map[string]int)
	e.dirty = true
	e.mu.Unlock()

	return e.persistClear()
}

func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

type vocabSizer interface {
	VocabularySize() int
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Stats{TotalItems: len(e.items)}
	if v, ok := e.embedder.(vocabSizer); ok {
		s.VocabularySize = v.VocabularySize()
	} else {
		s.VocabularySize = e.embedder.Dimension()
	}
	return s
}

// Train rebuilds the vocabulary from every stored text and re-embeds
// all items. Search does this automatically when the store has changed
// since the last training, so calling Train explicitly only front-loads
// the cost. Embedders that need no training make this a no-op.
func (e *Engine) Train() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retrainLocked()
}

func (e *Engine) retrainLocked() {
	tr, ok := e.embedder.(embed.Trainable)
	if !ok {
		e.dirty = false
		return
	}

	docs := make([]string, len(e.items))
	for i, it := range e.items {
		docs[i] = it.Text
	}
	tr.Train(docs)
	for _, it := range e.items {
		it.Embedding = e.embedder.Embed(it.Text)
	}
	e.dirty = false

	e.logger.Debug("retrained vocabulary", "items", len(e.items), "dimension", e.embedder.Dimension())
}

// ensureTrained retrains once when the store changed since the last
// training. Double-checked so clean reads stay on the read lock.
func (e *Engine) ensureTrained() {
	e.mu.RLock()
	dirty := e.dirty
	e.mu.RUnlock()
	if !dirty {
		return
	}

	e.mu.Lock()
	if e.dirty {
		e.retrainLocked()
	}
	e.mu.Unlock()
}

// Close drains the background indexer. The engine stays usable for
// synchronous calls afterwards.
func (e *Engine) Close() {
	e.Indexer.Close()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
