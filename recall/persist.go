package recall

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recallgo/storage"
)

const (
	persistMaxRetries = 3
	persistRetryBase  = 100 * time.Millisecond
)

// repo returns the item repository, or nil when the engine runs
// memory-only.
func (e *Engine) repo() storage.ItemRepo {
	if e.Storage == nil {
		return nil
	}
	d := e.Storage.Driver()
	if d == nil {
		return nil
	}
	r, ok := d.(storage.Repos)
	if !ok {
		return nil
	}
	return r.Item()
}

func itemRecord(it *Item) storage.ItemRecord {
	meta, _ := json.Marshal(it.Meta)
	return storage.ItemRecord{
		ID:          it.ID,
		Content:     it.Text,
		Embedding:   storage.EncodeEmbedding(it.Embedding),
		Meta:        string(meta),
		DateCreated: it.DateCreated,
		LastAccess:  it.LastAccess,
		AccessCount: it.AccessCount,
	}
}

func recordItem(rec storage.ItemRecord) Item {
	var meta Meta
	if rec.Meta != "" {
		_ = json.Unmarshal([]byte(rec.Meta), &meta)
	}
	return Item{
		ID:          rec.ID,
		Text:        rec.Content,
		Embedding:   storage.DecodeEmbedding(rec.Embedding),
		Meta:        meta,
		DateCreated: rec.DateCreated,
		LastAccess:  rec.LastAccess,
		AccessCount: rec.AccessCount,
	}
}

func (e *Engine) persistUpsert(rec storage.ItemRecord) error {
	repo := e.repo()
	if repo == nil {
		return nil
	}
	if err := withRetry(func() error { return repo.Upsert(rec) }); err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrPersistence, rec.ID, err)
	}
	return nil
}

func (e *Engine) persistDelete(id string) error {
	repo := e.repo()
	if repo == nil {
		return nil
	}
	if err := withRetry(func() error { return repo.Delete(id) }); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrPersistence, id, err)
	}
	return nil
}

func (e *Engine) persistTouch(ids []string, lastAccess int64) error {
	repo := e.repo()
	if repo == nil || len(ids) == 0 {
		return nil
	}
	if err := withRetry(func() error { return repo.Touch(ids, lastAccess) }); err != nil {
		return fmt.Errorf("%w: touch: %v", ErrPersistence, err)
	}
	return nil
}

func (e *Engine) persistClear() error {
	repo := e.repo()
	if repo == nil {
		return nil
	}
	if err := withRetry(func() error { return repo.Clear() }); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrPersistence, err)
	}
	return nil
}

// Load hydrates the in-memory store from the connected backend and
// retrains the embedder over the loaded corpus, so persisted
// embeddings are recomputed against the fresh vocabulary. When the
// backend holds more rows than the capacity (e.g. the capacity was
// lowered between runs), the least recently accessed surplus is
// evicted there first. Returns how many items were loaded.
func (e *Engine) Load() (int, error) {
	repo := e.repo()
	if repo == nil {
		return 0, nil
	}

	count, err := repo.Count()
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrPersistence, err)
	}
	if surplus := count - int64(e.cfg.Capacity); surplus > 0 {
		if _, err := repo.EvictLRU(int(surplus)); err != nil {
			return 0, fmt.Errorf("%w: evict: %v", ErrPersistence, err)
		}
		e.logger.Warn("persisted items exceed capacity, evicted surplus", "surplus", surplus)
	}

	recs, err := repo.List()
	if err != nil {
		return 0, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}

	e.mu.Lock()
	e.items = make([]*Item, 0, len(recs))
	e.index = make(map[string]int, len(recs))
	for _, rec := range recs {
		it := recordItem(rec)
		e.index[it.ID] = len(e.items)
		e.items = append(e.items, &it)
	}
	e.dirty = true
	e.retrainLocked()
	n := len(e.items)
	e.mu.Unlock()

	e.logger.Debug("loaded items from storage", "items", n)
	return n, nil
}

func withRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < persistMaxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !isRetriableError(err) || attempt == persistMaxRetries-1 {
			return err
		}
		time.Sleep(persistRetryBase * time.Duration(1<<attempt))
	}
	return err
}

// isRetriableError matches transient backend contention: SQLite write
// locks and serialization retry hints from Postgres and CockroachDB.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "restart transaction") ||
		strings.Contains(s, "serialization failure")
}
