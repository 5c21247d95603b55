package embed

import (
	"strings"
	"unicode"
)

// minTokenLen drops short function words ("a", "an", "to", "is") without
// needing a stopword list.
const minTokenLen = 3

func isTokenSep(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// Tokenize lowercases text, splits on any non-word character and drops
// tokens shorter than minTokenLen bytes. The same tokenizer feeds both
// the embedders and Overlap, so ranking and dedup agree on what a term is.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), isTokenSep)
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	toks := Tokenize(text)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}
