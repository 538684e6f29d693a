// Package similarity scores how lexically close two strings are.
package similarity

import (
	"faq-assistant/textutil"

	"github.com/pmezard/go-difflib/difflib"
)

// Score returns the SequenceMatcher ratio 2*M/T between the case-folded text
// and query, compared rune by rune. The result is in [0, 1]: 1 for identical
// folded strings and 0 only when they share no character.
//
// The ratio is deterministic but not guaranteed to be symmetric; swapping the
// arguments can change which matching blocks are found first. Callers always
// pass the candidate text first and the query second.
func Score(text, query string) float64 {
	a := runes(textutil.Fold(text))
	b := runes(textutil.Fold(query))
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	// Autojunk is off: with it, frequent runes in long texts are ignored and
	// overlapping strings could score 0.
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)
	return matcher.Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
