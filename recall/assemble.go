package recall

import "strings"

// Assembler builds bounded context blocks for prompt construction. It
// combines a local window around a cursor position with items retrieved
// from the engine, trimming retrieved items to stay within a character
// budget.
type Assembler struct {
	e                *Engine
	maxContextChars  int
	localWindowChars int
}

// AssemblerOption mutates an Assembler during construction.
type AssemblerOption func(*Assembler)

// WithMaxContextChars overrides the total character budget.
func WithMaxContextChars(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.maxContextChars = n
		}
	}
}

// WithLocalWindowChars overrides the size of the local window.
func WithLocalWindowChars(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.localWindowChars = n
		}
	}
}

// NewAssembler wraps an engine. Budgets default to the engine's
// configuration.
func NewAssembler(e *Engine, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		e:                e,
		maxContextChars:  e.cfg.MaxContextChars,
		localWindowChars: e.cfg.LocalWindowChars,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AssembledContext is the output of Assemble.
type AssembledContext struct {
	// Local is the window of the document around the cursor. It is
	// never truncated to fit the budget.
	Local string
	// Items are the retrieved items that fit within the budget, most
	// relevant first.
	Items []ScoredItem
	// Text is Local and the item texts joined by blank lines.
	Text string
	// TotalChars counts the characters of Local plus the item texts.
	TotalChars int
}

// Assemble retrieves items relevant to the query and the document
// region around cursor, and packs them into the character budget.
// Items are dropped least relevant first until the local window plus
// the item texts fit; the local window itself always survives.
func (a *Assembler) Assemble(query, document string, cursor int) AssembledContext {
	local := localWindow(document, cursor, a.localWindowChars)

	effective := query
	if local != "" {
		effective = query + "\n" + local
	}
	results := a.e.Search(effective)

	total := len(local)
	for _, r := range results {
		total += len(r.Text)
	}
	kept := results
	for len(kept) > 0 && total > a.maxContextChars {
		total -= len(kept[len(kept)-1].Text)
		kept = kept[:len(kept)-1]
	}

	parts := make([]string, 0, len(kept)+1)
	if local != "" {
		parts = append(parts, local)
	}
	for _, r := range kept {
		parts = append(parts, r.Text)
	}

	return AssembledContext{
		Local:      local,
		Items:      kept,
		Text:       strings.Join(parts, "\n\n"),
		TotalChars: total,
	}
}

// localWindow returns a window of size bytes centered on cursor,
// shifted to stay within the document.
func localWindow(document string, cursor, size int) string {
	if document == "" || size <= 0 {
		return ""
	}
	if len(document) <= size {
		return document
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(document) {
		cursor = len(document)
	}
	half := size / 2
	start := cursor - half
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > len(document) {
		end = len(document)
		start = end - size
	}
	return document[start:end]
}
