package recall

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"recallgo/storage"
)

type snapshot struct {
	Items []Item `json:"items"`
}

// Export writes every stored item as a JSON snapshot, embeddings
// included, suitable for Import.
func (e *Engine) Export(w io.Writer) error {
	e.mu.RLock()
	snap := snapshot{Items: make([]Item, 0, len(e.items))}
	for _, it := range e.items {
		snap.Items = append(snap.Items, *it)
	}
	e.mu.RUnlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Import replaces the store contents with a previously exported
// snapshot, retrains and write-through persists the result. Snapshots
// larger than the capacity keep their most recently accessed items.
func (e *Engine) Import(r io.Reader) error {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	items := snap.Items
	if len(items) > e.cfg.Capacity {
		items = keepMostRecent(items, e.cfg.Capacity)
	}

	now := nowMillis()
	e.mu.Lock()
	e.items = make([]*Item, 0, len(items))
	e.index = make(map[string]int, len(items))
	for i := range items {
		it := items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		if it.DateCreated == 0 {
			it.DateCreated = now
		}
		if _, ok := e.index[it.ID]; ok {
			// duplicate id in the snapshot, first occurrence wins
			continue
		}
		e.index[it.ID] = len(e.items)
		e.items = append(e.items, &it)
	}
	e.dirty = true
	e.retrainLocked()
	recs := make([]storage.ItemRecord, 0, len(e.items))
	for _, it := range e.items {
		recs = append(recs, itemRecord(it))
	}
	e.mu.Unlock()

	if e.repo() == nil {
		return nil
	}
	if err := e.persistClear(); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := e.persistUpsert(rec); err != nil {
			return err
		}
	}
	return nil
}

// keepMostRecent selects the n most recently accessed items while
// preserving their relative order.
func keepMostRecent(items []Item, n int) []Item {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return items[idx[a]].LastAccess > items[idx[b]].LastAccess
	})

	keep := make(map[int]struct{}, n)
	for _, i := range idx[:n] {
		keep[i] = struct{}{}
	}
	out := make([]Item, 0, n)
	for i := range items {
		if _, ok := keep[i]; ok {
			out = append(out, items[i])
		}
	}
	return out
}
