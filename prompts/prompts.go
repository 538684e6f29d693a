package prompts

import (
	_ "embed"
	"strings"
	"text/template"
)

// Embedded prompt files

//go:embed faq_answer.txt
var faqAnswer string

var faqAnswerTemplate = template.Must(template.New("faq_answer").Option("missingkey=error").Parse(faqAnswer))

func FAQAnswer() string { return faqAnswer }

// BuildAnswerPrompt renders the answer prompt. The context block comes before
// the query and both are included in full.
func BuildAnswerPrompt(context, query string) string {
	var b strings.Builder
	data := struct{ Context, Query string }{Context: context, Query: query}
	if err := faqAnswerTemplate.Execute(&b, data); err != nil {
		// Only reachable if the embedded template is broken.
		panic(err)
	}
	return b.String()
}
