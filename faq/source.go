package faq

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	apperrors "faq-assistant/errors"

	"github.com/goccy/go-yaml"
)

// SourceStatus describes the outcome of loading one FAQ source.
type SourceStatus string

const (
	SourceLoaded     SourceStatus = "loaded"
	SourceMissing    SourceStatus = "missing"
	SourceEmpty      SourceStatus = "empty"
	SourceMalformed  SourceStatus = "malformed"
	SourceUnreadable SourceStatus = "unreadable"
)

// SourceReport records what happened to a single source during Load.
type SourceReport struct {
	Path    string       `json:"path"`
	Status  SourceStatus `json:"status"`
	Entries int          `json:"entries"`
	Skipped int          `json:"skipped,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// decodeSource turns the raw bytes of a source into raw records. The whole
// document must be an array; individual elements are decoded later so that
// one bad element does not discard its siblings.
func decodeSource(path string, data []byte) ([]rawRecord, error) {
	if isYAML(path) {
		var records []rawEntry
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, apperrors.Mark(err, apperrors.ErrMalformedSource)
		}
		out := make([]rawRecord, len(records))
		for i := range records {
			out[i] = rawRecord{entry: records[i]}
		}
		return out, nil
	}

	var elements []json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&elements); err != nil {
		return nil, apperrors.Mark(err, apperrors.ErrMalformedSource)
	}
	if dec.More() {
		return nil, apperrors.WrapError(apperrors.ErrMalformedSource, "trailing data after array")
	}

	out := make([]rawRecord, len(elements))
	for i, element := range elements {
		var entry rawEntry
		if err := json.Unmarshal(element, &entry); err != nil {
			out[i] = rawRecord{err: apperrors.Mark(err, apperrors.ErrMalformedEntry)}
			continue
		}
		out[i] = rawRecord{entry: entry}
	}
	return out, nil
}

// rawRecord is one element of a source: either a decoded record or the
// reason it could not be decoded.
type rawRecord struct {
	entry rawEntry
	err   error
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
