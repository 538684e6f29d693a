// Package faq loads the question/answer knowledge base.
//
// A Store is an immutable snapshot built once at startup. Sources are read in
// the order given and their entries concatenated; duplicate questions are kept
// as-is. Problems with a source never abort the load: the source is skipped,
// the reason is logged and recorded in its SourceReport.
package faq

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"slices"

	apperrors "faq-assistant/errors"

	"go.uber.org/zap"
)

// Store is a read-only collection of FAQ entries. It is safe for concurrent use.
type Store struct {
	entries []Entry
	sources []SourceReport
}

// NewStore builds a store from in-memory entries, mainly for tests and tools.
func NewStore(entries ...Entry) *Store {
	return &Store{entries: slices.Clone(entries)}
}

// Load reads every source in paths and returns the merged store. It never
// fails; see the package documentation for how bad sources are handled.
func Load(logger *zap.Logger, paths ...string) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	store := &Store{}
	for _, path := range paths {
		report, entries := loadSource(logger, path)
		store.entries = append(store.entries, entries...)
		store.sources = append(store.sources, report)
	}

	logger.Info("FAQ store loaded",
		zap.Int("entries", len(store.entries)),
		zap.Int("sources", len(paths)))
	return store
}

func loadSource(logger *zap.Logger, path string) (SourceReport, []Entry) {
	report := SourceReport{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			report.Status = SourceMissing
			logger.Info("FAQ source not found, skipping", zap.String("path", path))
		} else {
			report.Status = SourceUnreadable
			report.Error = err.Error()
			logger.Warn("FAQ source could not be read, skipping", zap.String("path", path), zap.Error(err))
		}
		return report, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		report.Status = SourceEmpty
		report.Error = apperrors.ErrEmptySource.Error()
		logger.Info("FAQ source is empty, skipping", zap.String("path", path))
		return report, nil
	}

	records, err := decodeSource(path, data)
	if err != nil {
		report.Status = SourceMalformed
		report.Error = err.Error()
		logger.Warn("FAQ source is malformed, skipping", zap.String("path", path), zap.Error(err))
		return report, nil
	}

	entries := make([]Entry, 0, len(records))
	for i, record := range records {
		err := record.err
		var entry Entry
		if err == nil {
			entry, err = record.entry.canonical()
		}
		if err != nil {
			report.Skipped++
			logger.Warn("Skipping malformed FAQ entry",
				zap.String("path", path),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	report.Status = SourceLoaded
	report.Entries = len(entries)
	logger.Debug("FAQ source loaded",
		zap.String("path", path),
		zap.Int("entries", report.Entries),
		zap.Int("skipped", report.Skipped))
	return report, entries
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// At returns the entry at position i in load order.
func (s *Store) At(i int) Entry {
	return s.entries[i]
}

// Entries returns a copy of all entries in load order.
func (s *Store) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Texts returns question + " " + answer for every entry, index-aligned with
// the entries. This is the text the embedding corpus is built from.
func (s *Store) Texts() []string {
	texts := make([]string, len(s.entries))
	for i, entry := range s.entries {
		texts[i] = entry.Text()
	}
	return texts
}

// Sources returns the per-source load reports in load order.
func (s *Store) Sources() []SourceReport {
	return slices.Clone(s.sources)
}
