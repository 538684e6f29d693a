package format

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var numberedItem = regexp.MustCompile(`^\d+\.\s`)

// ToHTML renders an answer as HTML. Raw HTML in the answer is dropped, so
// FAQ content cannot inject markup into a page.
func ToHTML(text string) string {
	text = normalizeMarkdownLists(PreprocessAnswerText(text))

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML,
	})
	return strings.TrimSpace(string(markdown.ToHTML([]byte(text), p, renderer)))
}

func isListItem(line string) bool {
	return strings.HasPrefix(line, "- ") ||
		strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "+ ") ||
		strings.HasPrefix(line, "– ") ||
		numberedItem.MatchString(line)
}

// normalizeMarkdownLists ensures list items have proper spacing for markdown parsing.
// Markdown requires a blank line before lists, but FAQ answers often omit it.
// Lines starting with an en dash are turned into regular list items.
func normalizeMarkdownLists(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "– "); ok {
			line = "- " + rest
		}

		if isListItem(trimmed) && i > 0 {
			prev := strings.TrimSpace(lines[i-1])
			if prev != "" && !isListItem(prev) {
				result = append(result, "")
			}
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}
