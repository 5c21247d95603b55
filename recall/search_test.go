package recall_test

import (
	"errors"
	"testing"

	"recallgo/recall"
)

// newFixtureEngine stores three texts with known ids: two related to
// machine learning and one about cooking.
func newFixtureEngine(t *testing.T) *recall.Engine {
	t.Helper()
	eng := recall.New()
	fixture := []struct{ id, text string }{
		{"ml", "artificial intelligence machine learning"},
		{"dl", "deep learning neural networks"},
		{"cooking", "cooking recipes food"},
	}
	for _, f := range fixture {
		if err := eng.InsertWithID(f.id, f.text, recall.Meta{}); err != nil {
			t.Fatalf("insert %s: %v", f.id, err)
		}
	}
	return eng
}

func TestSearch_MostRelevantFirst(t *testing.T) {
	eng := newFixtureEngine(t)

	results := eng.Search("machine learning AI", recall.TopK(1))
	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	if results[0].ID != "ml" {
		t.Fatalf("top result: got %s, want ml", results[0].ID)
	}
	if results[0].Score <= 0 {
		t.Fatalf("top score: got %v, want > 0", results[0].Score)
	}
}

func TestSearch_OrdersByScoreDescending(t *testing.T) {
	eng := newFixtureEngine(t)

	results := eng.Search("machine learning AI")
	if len(results) != 3 {
		t.Fatalf("results: got %d, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("scores not descending at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
	if results[0].ID != "ml" || results[1].ID != "dl" {
		t.Fatalf("order: got %s, %s", results[0].ID, results[1].ID)
	}
	// the unrelated item scores zero but is still returned under the
	// default MinScore of 0
	if results[2].ID != "cooking" || results[2].Score != 0 {
		t.Fatalf("tail: got %s score %v", results[2].ID, results[2].Score)
	}
}

func TestSearch_TopKBounds(t *testing.T) {
	eng := newFixtureEngine(t)

	if got := eng.Search("machine learning AI", recall.TopK(2)); len(got) != 2 {
		t.Fatalf("topK 2: got %d results", len(got))
	}
	if got := eng.Search("machine learning AI", recall.TopK(0)); len(got) != 0 {
		t.Fatalf("topK 0: got %d results", len(got))
	}
}

func TestSearch_MinScoreDropsWeakMatches(t *testing.T) {
	eng := newFixtureEngine(t)

	results := eng.Search("machine learning AI", recall.MinScore(0.5))
	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	if results[0].ID != "ml" {
		t.Fatalf("got %s, want ml", results[0].ID)
	}
}

func TestSearch_OverlapFilterSuppressesNearDuplicateOfQuery(t *testing.T) {
	eng := recall.New()
	if err := eng.InsertWithID("dup", "hello world", recall.Meta{}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := eng.InsertWithID("other", "totally different content here", recall.Meta{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// same token set as the stored item, despite case and punctuation
	results := eng.Search("Hello, world!")
	for _, r := range results {
		if r.ID == "dup" {
			t.Fatalf("near-duplicate not suppressed: %#v", results)
		}
	}

	results = eng.Search("Hello, world!", recall.OverlapFilter(false))
	if len(results) != 2 || results[0].ID != "dup" {
		t.Fatalf("with filter off, expected dup first: %#v", results)
	}
}

func TestSearch_DistinctPrunesNearDuplicateResults(t *testing.T) {
	eng := recall.New()
	fixture := []struct{ id, text string }{
		{"m1", "machine learning basics"},
		{"m2", "Machine Learning Basics!"},
		{"c", "cooking recipes food"},
	}
	for _, f := range fixture {
		if err := eng.InsertWithID(f.id, f.text, recall.Meta{}); err != nil {
			t.Fatalf("insert %s: %v", f.id, err)
		}
	}

	plain := eng.Search("machine learning")
	if len(plain) != 3 {
		t.Fatalf("plain search: got %d results, want 3", len(plain))
	}

	distinct := eng.Search("machine learning", recall.Distinct(true))
	if len(distinct) != 2 {
		t.Fatalf("distinct search: got %d results, want 2", len(distinct))
	}
	if distinct[0].ID != "m1" {
		t.Fatalf("best-ranked duplicate should survive: got %s", distinct[0].ID)
	}
	for _, r := range distinct {
		if r.ID == "m2" {
			t.Fatalf("duplicate m2 not pruned: %#v", distinct)
		}
	}
}

func TestSearch_EmptyStoreReturnsEmpty(t *testing.T) {
	eng := recall.New()
	if got := eng.Search("anything at all"); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestSearch_AutoRetrainsOnNewItems(t *testing.T) {
	eng := recall.New()
	if err := eng.InsertWithID("one", "alpha bravo charlie", recall.Meta{}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := eng.Search("alpha"); len(got) != 1 {
		t.Fatalf("first search: got %d results", len(got))
	}

	// terms unseen by the previous training round
	if err := eng.InsertWithID("two", "delta echo foxtrot", recall.Meta{}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	results := eng.Search("delta echo")
	if len(results) == 0 || results[0].ID != "two" {
		t.Fatalf("expected the new item first, got %#v", results)
	}
}

func TestSearch_TouchesReturnedItems(t *testing.T) {
	eng := newFixtureEngine(t)

	eng.Search("machine learning AI", recall.TopK(1))

	for _, it := range eng.List() {
		want := int64(0)
		if it.ID == "ml" {
			want = 1
		}
		if it.AccessCount != want {
			t.Fatalf("access count of %s: got %d, want %d", it.ID, it.AccessCount, want)
		}
	}
}

func TestFindSimilar_ExcludesSelf(t *testing.T) {
	eng := newFixtureEngine(t)

	results, err := eng.FindSimilar("ml")
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected results")
	}
	for _, r := range results {
		if r.ID == "ml" {
			t.Fatalf("seed item returned in its own results")
		}
	}
	if results[0].ID != "dl" {
		t.Fatalf("nearest neighbour: got %s, want dl", results[0].ID)
	}
}

func TestFindSimilar_UnknownID(t *testing.T) {
	eng := newFixtureEngine(t)
	if _, err := eng.FindSimilar("ghost"); !errors.Is(err, recall.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
