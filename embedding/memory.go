package embedding

import (
	"context"
	"fmt"
	"sort"

	apperrors "faq-assistant/errors"

	"go.uber.org/zap"
)

// MemorySearcher compares the query vector against every corpus vector.
// FAQ corpora are small, so a linear scan is enough.
type MemorySearcher struct {
	embedder Embedder
	logger   *zap.Logger
}

var _ Searcher = (*MemorySearcher)(nil)

func NewMemorySearcher(embedder Embedder, logger *zap.Logger) *MemorySearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemorySearcher{embedder: embedder, logger: logger}
}

func (s *MemorySearcher) Search(ctx context.Context, query string, corpus *Corpus, topK int) ([]Hit, error) {
	if corpus.Len() == 0 || topK < 1 {
		return nil, nil
	}
	if corpus.Model != s.embedder.ModelID() {
		return nil, fmt.Errorf("corpus model %q does not match embedder %q: %w",
			corpus.Model, s.embedder.ModelID(), apperrors.ErrStaleCorpus)
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, apperrors.Mark(err, apperrors.ErrEmbedding)
	}
	q := normalize(vec)

	hits := make([]Hit, corpus.Len())
	for i := range hits {
		hits[i] = Hit{Score: dot(q, corpus.Vector(i)), Index: i}
	}
	return topHits(hits, topK), nil
}

// topHits sorts by descending score, keeping store order among equal scores,
// and truncates to k.
func topHits(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
