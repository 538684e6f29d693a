// Package sanitize cleans raw LLM output before it is shown to a user.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Markers after which a model tends to continue with boilerplate or a new
// turn. Matching is case-insensitive; the earliest occurrence wins.
var Markers = []string{
	"response:",
	"question:",
	"answer:",
	"Iterate",
	"Here is the answer",
	"Ответ:",
	"Вопрос:",
	"===",
	"</s>",
}

// Prefix is a role label some models emit at the start of their answer.
const Prefix = "- teacher:"

// Clean returns text with disallowed characters removed, everything from the
// first marker on dropped, and leading role labels stripped.
//
// Only Basic Latin, Cyrillic, whitespace and the en and em dashes survive the
// character filter. Emoji, CJK and other scripts are dropped silently.
// Clean is idempotent: Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	text = filter(text)
	if i := indexMarker(text); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	for {
		n, ok := foldPrefix(text, Prefix)
		if !ok {
			break
		}
		text = strings.TrimSpace(text[n:])
	}
	return text
}

func allowed(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return false
	case r <= unicode.MaxASCII:
		return true
	case r >= 0x0400 && r <= 0x04FF:
		return true
	case r == '–' || r == '—':
		return true
	}
	return unicode.IsSpace(r)
}

func filter(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if allowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// indexMarker returns the byte offset of the earliest marker in text, or -1.
func indexMarker(text string) int {
	for i := range text {
		for _, marker := range Markers {
			if _, ok := foldPrefix(text[i:], marker); ok {
				return i
			}
		}
	}
	return -1
}

// foldPrefix reports whether s starts with prefix under Unicode case folding
// and returns the number of bytes of s the prefix spans.
func foldPrefix(s, prefix string) (int, bool) {
	n := 0
	for _, want := range prefix {
		if n >= len(s) {
			return 0, false
		}
		got, size := utf8.DecodeRuneInString(s[n:])
		if !equalFold(got, want) {
			return 0, false
		}
		n += size
	}
	return n, true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
