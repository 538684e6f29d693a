package database

import (
	"context"
	"fmt"

	"faq-assistant/embedding"
	apperrors "faq-assistant/errors"
)

// VectorSearcher implements embedding.Searcher with pgvector. The corpus
// must have been stored with SyncCorpus.
type VectorSearcher struct {
	store    *PostgresStore
	embedder embedding.Embedder
}

var _ embedding.Searcher = (*VectorSearcher)(nil)

func NewVectorSearcher(store *PostgresStore, embedder embedding.Embedder) *VectorSearcher {
	return &VectorSearcher{store: store, embedder: embedder}
}

func (s *VectorSearcher) Search(ctx context.Context, query string, corpus *embedding.Corpus, topK int) ([]embedding.Hit, error) {
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
	return s.store.SearchCorpus(ctx, corpus.ID, vec, topK)
}
