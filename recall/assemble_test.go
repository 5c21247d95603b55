package recall_test

import (
	"strings"
	"testing"

	"recallgo/recall"
)

func TestAssemble_LocalWindowCentersOnCursor(t *testing.T) {
	eng := recall.New()
	asm := recall.NewAssembler(eng,
		recall.WithLocalWindowChars(4),
		recall.WithMaxContextChars(100),
	)
	doc := "0123456789"

	cases := []struct {
		cursor int
		want   string
	}{
		{5, "3456"},
		{0, "0123"},
		{-7, "0123"},
		{10, "6789"},
		{99, "6789"},
	}
	for _, c := range cases {
		out := asm.Assemble("query", doc, c.cursor)
		if out.Local != c.want {
			t.Fatalf("cursor %d: got %q, want %q", c.cursor, out.Local, c.want)
		}
	}
}

func TestAssemble_ShortDocumentReturnedWhole(t *testing.T) {
	eng := recall.New()
	asm := recall.NewAssembler(eng,
		recall.WithLocalWindowChars(50),
		recall.WithMaxContextChars(100),
	)

	out := asm.Assemble("query", "tiny doc", 3)
	if out.Local != "tiny doc" {
		t.Fatalf("local: got %q, want the whole document", out.Local)
	}

	out = asm.Assemble("query", "", 0)
	if out.Local != "" {
		t.Fatalf("empty document: got %q", out.Local)
	}
}

func TestAssemble_BudgetDropsLeastRelevantFirst(t *testing.T) {
	eng := recall.New()
	fixture := []struct{ id, text string }{
		{"a", "alpha bravo charlie delta"},
		{"b", "alpha bravo echo foxtrot"},
		{"c", "unrelated cooking text"},
	}
	for _, f := range fixture {
		if err := eng.InsertWithID(f.id, f.text, recall.Meta{}); err != nil {
			t.Fatalf("insert %s: %v", f.id, err)
		}
	}

	asm := recall.NewAssembler(eng, recall.WithMaxContextChars(30))
	out := asm.Assemble("alpha bravo charlie", "", 0)

	if len(out.Items) != 1 || out.Items[0].ID != "a" {
		t.Fatalf("expected only the best match to fit, got %#v", out.Items)
	}
	if out.TotalChars != len("alpha bravo charlie delta") {
		t.Fatalf("total chars: got %d, want %d", out.TotalChars, len("alpha bravo charlie delta"))
	}
	if out.TotalChars > 30 {
		t.Fatalf("budget exceeded: %d > 30", out.TotalChars)
	}
}

func TestAssemble_LocalWindowNeverTruncated(t *testing.T) {
	eng := recall.New()
	if err := eng.InsertWithID("a", "alpha bravo charlie delta", recall.Meta{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	asm := recall.NewAssembler(eng,
		recall.WithLocalWindowChars(20),
		recall.WithMaxContextChars(10),
	)
	doc := strings.Repeat("alpha bravo ", 5)
	out := asm.Assemble("alpha bravo", doc, len(doc)/2)

	if len(out.Local) != 20 {
		t.Fatalf("local length: got %d, want 20", len(out.Local))
	}
	if len(out.Items) != 0 {
		t.Fatalf("expected all items dropped, got %d", len(out.Items))
	}
	if out.TotalChars != 20 {
		t.Fatalf("total chars: got %d, want 20", out.TotalChars)
	}
}

func TestAssemble_LocalContextInformsRetrieval(t *testing.T) {
	eng := recall.New()
	if err := eng.InsertWithID("g", "gorgonzola cheese pairing guide", recall.Meta{}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := eng.InsertWithID("x", "suspension bridge engineering", recall.Meta{}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	doc := "notes about gorgonzola cheese and wine"
	asm := recall.NewAssembler(eng,
		recall.WithLocalWindowChars(100),
		recall.WithMaxContextChars(400),
	)
	// the query alone matches nothing; the window around the cursor does
	out := asm.Assemble("what should someone read next", doc, len(doc)/2)

	if len(out.Items) == 0 || out.Items[0].ID != "g" {
		t.Fatalf("expected the cheese item first, got %#v", out.Items)
	}
	if !strings.HasPrefix(out.Text, out.Local) {
		t.Fatalf("text should start with the local window: %q", out.Text)
	}
	if !strings.Contains(out.Text, "\n\n") {
		t.Fatalf("text should join parts with blank lines: %q", out.Text)
	}
}
