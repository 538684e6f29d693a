package faq

import (
	"encoding/json"
	"strings"

	apperrors "faq-assistant/errors"
)

// Entry is a single question/answer pair of the knowledge base.
type Entry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Text returns the text an entry is embedded and lexically scored by.
func (e Entry) Text() string {
	return e.Question + " " + e.Answer
}

// UnmarshalJSON accepts both the canonical {question, answer} schema and the
// legacy {title, text} one.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	entry, err := raw.canonical()
	if err != nil {
		return err
	}
	*e = entry
	return nil
}

// rawEntry is the union of every schema seen in FAQ sources.
type rawEntry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
	Title    string `json:"title" yaml:"title"`
	Text     string `json:"text" yaml:"text"`
}

// canonical migrates a raw record onto Entry. Canonical fields win over legacy
// ones when both are present.
func (r rawEntry) canonical() (Entry, error) {
	question := r.Question
	if strings.TrimSpace(question) == "" {
		question = r.Title
	}
	answer := r.Answer
	if strings.TrimSpace(answer) == "" {
		answer = r.Text
	}
	if strings.TrimSpace(question) == "" {
		return Entry{}, apperrors.WrapError(apperrors.ErrMalformedEntry, "missing question")
	}
	if strings.TrimSpace(answer) == "" {
		return Entry{}, apperrors.WrapError(apperrors.ErrMalformedEntry, "missing answer")
	}
	return Entry{Question: question, Answer: answer}, nil
}
