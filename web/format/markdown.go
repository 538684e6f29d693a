package format

import (
	"strings"
)

// PreprocessAnswerText normalizes answer text before rendering.
func PreprocessAnswerText(text string) string {
	if text == "" {
		return text
	}

	// Replace curly quotes (helps readability)
	text = strings.NewReplacer(
		"“", "\"",
		"”", "\"",
		"‘", "'",
		"’", "'",
	).Replace(text)

	return text
}
