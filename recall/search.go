package recall

import (
	"fmt"
	"sort"

	"recallgo/embed"
)

// SearchOption overrides one engine search default for a single call.
type SearchOption func(*searchParams)

type searchParams struct {
	topK       int
	minScore   float64
	maxOverlap float64
	overlapOn  bool
	distinct   bool
}

// TopK caps the number of results.
func TopK(n int) SearchOption { return func(p *searchParams) { p.topK = n } }

// MinScore drops results scoring below s.
func MinScore(s float64) SearchOption { return func(p *searchParams) { p.minScore = s } }

// MaxOverlap sets the token-overlap ceiling used by the overlap filter
// and by Distinct.
func MaxOverlap(o float64) SearchOption { return func(p *searchParams) { p.maxOverlap = o } }

// OverlapFilter toggles suppression of results that near-duplicate the
// query text.
func OverlapFilter(on bool) SearchOption { return func(p *searchParams) { p.overlapOn = on } }

// Distinct additionally prunes results that near-duplicate an earlier,
// better-ranked result. Off by default: plain searches only dedup
// against the query.
func Distinct(on bool) SearchOption { return func(p *searchParams) { p.distinct = on } }

func (e *Engine) searchParams(opts []SearchOption) searchParams {
	e.mu.RLock()
	p := searchParams{
		topK:       e.cfg.TopK,
		minScore:   e.cfg.MinScore,
		maxOverlap: e.cfg.MaxOverlap,
		overlapOn:  e.cfg.EnableOverlapFilter,
	}
	e.mu.RUnlock()

	for _, opt := range opts {
		opt(&p)
	}
	if p.topK < 0 {
		p.topK = 0
	}
	return p
}

// Search embeds the query, scores every stored item by cosine
// similarity, drops scores below MinScore, drops near-duplicates of the
// query when the overlap filter is on, sorts by score descending
// (stable on ties) and truncates to TopK. Returned items count as
// accessed. An empty store or nothing passing the filters yields an
// empty slice, never an error.
func (e *Engine) Search(query string, opts ...SearchOption) []ScoredItem {
	p := e.searchParams(opts)
	e.ensureTrained()

	e.mu.RLock()
	qv := e.embedder.Embed(query)
	results := e.rankLocked(qv, query, "", p)
	e.mu.RUnlock()

	results = finishResults(results, p)
	e.touchResults(results)
	return results
}

// FindSimilar runs the search pipeline with the stored item's own
// embedding and text as the query, excluding the item from its results.
// Returns ErrNotFound for an unknown id.
func (e *Engine) FindSimilar(id string, opts ...SearchOption) ([]ScoredItem, error) {
	p := e.searchParams(opts)
	e.ensureTrained()

	e.mu.RLock()
	pos, ok := e.index[id]
	if !ok {
		e.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	seed := e.items[pos]
	results := e.rankLocked(seed.Embedding, seed.Text, id, p)
	e.mu.RUnlock()

	results = finishResults(results, p)
	e.touchResults(results)
	return results, nil
}

func (e *Engine) rankLocked(qv []float64, qtext, skipID string, p searchParams) []ScoredItem {
	results := make([]ScoredItem, 0, len(e.items))
	for _, it := range e.items {
		if it.ID == skipID {
			continue
		}
		score, err := embed.Cosine(qv, it.Embedding)
		if err != nil {
			// stale dimension, repaired by the next retrain
			continue
		}
		if score < p.minScore {
			continue
		}
		if p.overlapOn && embed.Overlap(qtext, it.Text) > p.maxOverlap {
			continue
		}
		results = append(results, ScoredItem{Item: *it, Score: score})
	}
	return results
}

func finishResults(results []ScoredItem, p searchParams) []ScoredItem {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if p.distinct {
		results = dropNearDuplicates(results, p.maxOverlap)
	}
	if len(results) > p.topK {
		results = results[:p.topK]
	}
	return results
}

// dropNearDuplicates keeps only the best-ranked member of any group of
// results whose texts overlap beyond maxOverlap.
func dropNearDuplicates(results []ScoredItem, maxOverlap float64) []ScoredItem {
	kept := results[:0]
	for _, r := range results {
		dup := false
		for _, k := range kept {
			if embed.Overlap(r.Text, k.Text) > maxOverlap {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, r)
		}
	}
	return kept
}

// touchResults bumps access bookkeeping for returned items, in memory
// and write-through. Touch failures only cost bookkeeping, so they are
// logged and swallowed.
func (e *Engine) touchResults(results []ScoredItem) {
	if len(results) == 0 {
		return
	}
	now := nowMillis()
	ids := make([]string, 0, len(results))

	e.mu.Lock()
	for _, r := range results {
		pos, ok := e.index[r.ID]
		if !ok {
			continue
		}
		it := e.items[pos]
		it.LastAccess = now
		it.AccessCount++
		ids = append(ids, r.ID)
	}
	e.mu.Unlock()

	if err := e.persistTouch(ids, now); err != nil {
		e.logger.Warn("failed to persist access update", "err", err)
	}
}
