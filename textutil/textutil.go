// Package textutil holds the text normalisation shared by the matchers.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC normalization and trims surrounding whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

// Fold returns the normalized, case-folded form of text used for
// case-insensitive comparisons. A new Caser is built per call because
// cases.Caser is not safe for concurrent use.
func Fold(text string) string {
	return cases.Fold().String(Normalize(text))
}

// MatchesTitle reports whether two already folded strings are equal or one
// contains the other. Empty strings never match.
func MatchesTitle(foldedQuery, foldedTitle string) bool {
	if foldedQuery == "" || foldedTitle == "" {
		return false
	}
	return foldedQuery == foldedTitle ||
		strings.Contains(foldedTitle, foldedQuery) ||
		strings.Contains(foldedQuery, foldedTitle)
}
