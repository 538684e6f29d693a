// Package resolver decides how a user question is answered.
//
// Resolution is a linear pipeline with early exits: an exact match against
// the FAQ titles, then either semantic search over the embedding corpus or a
// lexical fallback, then context assembly and a single LLM call. Resolve
// never fails; every failure mode ends in a user-facing string.
package resolver

import (
	"context"

	"faq-assistant/config"
	"faq-assistant/embedding"
	apperrors "faq-assistant/errors"
	"faq-assistant/faq"
	"faq-assistant/textutil"

	"go.uber.org/zap"
)

// Fixed answers.
const (
	NoInformationAnswer = "К сожалению, я не обладаю данной информацией."
	NotFoundAnswer      = "Информация не найдена в Базе знаний"
	LLMErrorPrefix      = "Ошибка при обращении к LLM: "
)

// Stage names the step that produced an answer.
type Stage string

const (
	StageRejected       Stage = "rejected"
	StageExact          Stage = "exact"
	StageSemanticDirect Stage = "semantic_direct"
	StageNoInformation  Stage = "no_information"
	StageLLM            Stage = "llm"
	StageLLMError       Stage = "llm_error"
)

// Completer is the external LLM call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options holds the thresholds of the pipeline.
type Options struct {
	SemanticTopK      int
	HintTopK          int
	RelevanceFloor    float64
	ReliableThreshold float64
	MaxAdditional     int
}

// DefaultOptions returns the production thresholds.
func DefaultOptions() Options {
	return Options{
		SemanticTopK:      5,
		HintTopK:          3,
		RelevanceFloor:    0.3,
		ReliableThreshold: 0.70,
		MaxAdditional:     2,
	}
}

// OptionsFromConfig reads the thresholds from cfg, keeping defaults for
// values that are not positive.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg.SemanticTopK > 0 {
		opts.SemanticTopK = cfg.SemanticTopK
	}
	if cfg.HintTopK > 0 {
		opts.HintTopK = cfg.HintTopK
	}
	if cfg.RelevanceFloor > 0 {
		opts.RelevanceFloor = cfg.RelevanceFloor
	}
	if cfg.ReliableThreshold > 0 {
		opts.ReliableThreshold = cfg.ReliableThreshold
	}
	if cfg.MaxAdditional > 0 {
		opts.MaxAdditional = cfg.MaxAdditional
	}
	return opts
}

// Resolver answers queries against an immutable store and corpus. It holds
// no per-query state and is safe for concurrent use.
type Resolver struct {
	store    *faq.Store
	corpus   *embedding.Corpus
	searcher embedding.Searcher
	llm      Completer
	opts     Options
	logger   *zap.Logger

	folded   []string
	semantic bool
}

// New builds a resolver. corpus and searcher may be nil, in which case every
// query takes the lexical path. A corpus whose size differs from the store is
// refused for the same reason.
func New(store *faq.Store, corpus *embedding.Corpus, searcher embedding.Searcher, llm Completer, opts Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = faq.NewStore()
	}

	folded := make([]string, store.Len())
	for i := range folded {
		folded[i] = textutil.Fold(store.At(i).Question)
	}

	semantic := corpus != nil && searcher != nil
	if semantic && corpus.Len() != store.Len() {
		logger.Warn("Semantic search disabled",
			zap.Error(apperrors.ErrStaleCorpus),
			zap.Int("corpus", corpus.Len()),
			zap.Int("entries", store.Len()))
		semantic = false
	}

	return &Resolver{
		store:    store,
		corpus:   corpus,
		searcher: searcher,
		llm:      llm,
		opts:     opts,
		logger:   logger,
		folded:   folded,
		semantic: semantic,
	}
}

// SemanticAvailable reports whether semantic search can be used.
func (r *Resolver) SemanticAvailable() bool {
	return r.semantic
}

// Resolve returns the answer for query.
func (r *Resolver) Resolve(ctx context.Context, query string, useSemantic bool) string {
	return r.ResolveDetailed(ctx, query, useSemantic).Answer
}
