package database

import (
	"context"
	"database/sql"
	"fmt"

	"faq-assistant/embedding"
	apperrors "faq-assistant/errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// VectorCache adapts the store to embedding.VectorCache so corpus builds
// reuse vectors persisted by earlier runs.
type VectorCache struct {
	store *PostgresStore
	model string
}

var _ embedding.VectorCache = (*VectorCache)(nil)

// NewVectorCache returns a cache whose writes are tagged with model.
func (s *PostgresStore) NewVectorCache(model string) *VectorCache {
	return &VectorCache{store: s, model: model}
}

// GetMany looks up vectors by content hash in one round trip.
func (c *VectorCache) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	const query = `SELECT content_hash, embedding FROM faq_vectors WHERE content_hash = ANY($1)`
	rows, err := c.store.DB.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, apperrors.Mark(fmt.Errorf("failed to query cached vectors: %w", err), apperrors.ErrDatabaseOperation)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		var vec pgvector.Vector
		if err := rows.Scan(&hash, &vec); err != nil {
			return nil, apperrors.Mark(fmt.Errorf("failed to scan cached vector: %w", err), apperrors.ErrDatabaseOperation)
		}
		out[hash] = vec.Slice()
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Mark(err, apperrors.ErrDatabaseOperation)
	}
	return out, nil
}

// PutMany upserts vectors keyed by content hash.
func (c *VectorCache) PutMany(ctx context.Context, vectors map[string][]float32) error {
	tx, err := c.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Mark(err, apperrors.ErrDatabaseOperation)
	}
	defer tx.Rollback()

	if err := upsertVectors(ctx, tx, c.model, vectors); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Mark(err, apperrors.ErrDatabaseOperation)
	}
	return nil
}

func upsertVectors(ctx context.Context, tx *sql.Tx, model string, vectors map[string][]float32) error {
	const query = `
        INSERT INTO faq_vectors (content_hash, model, embedding)
        VALUES ($1, $2, $3)
        ON CONFLICT (content_hash) DO UPDATE SET embedding = EXCLUDED.embedding, model = EXCLUDED.model
    `
	for hash, vec := range vectors {
		if _, err := tx.ExecContext(ctx, query, hash, model, pgvector.NewVector(vec)); err != nil {
			return apperrors.Mark(fmt.Errorf("failed to upsert vector %s: %w", hash, err), apperrors.ErrDatabaseOperation)
		}
	}
	return nil
}

// SyncCorpus stores the corpus under its ID. A corpus that is already fully
// stored is left untouched.
func (s *PostgresStore) SyncCorpus(ctx context.Context, corpus *embedding.Corpus) error {
	var stored int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM faq_corpus WHERE corpus_id = $1`, corpus.ID).Scan(&stored)
	if err != nil {
		return apperrors.Mark(fmt.Errorf("failed to count corpus rows: %w", err), apperrors.ErrDatabaseOperation)
	}
	if stored == corpus.Len() {
		s.logger.Debug("Corpus already stored", zap.String("corpus_id", corpus.ID.String()), zap.Int("entries", stored))
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Mark(err, apperrors.ErrDatabaseOperation)
	}
	defer tx.Rollback()

	vectors := make(map[string][]float32, corpus.Len())
	for i := 0; i < corpus.Len(); i++ {
		vectors[corpus.Hash(i)] = corpus.Vector(i)
	}
	if err := upsertVectors(ctx, tx, corpus.Model, vectors); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM faq_corpus WHERE corpus_id = $1`, corpus.ID); err != nil {
		return apperrors.Mark(fmt.Errorf("failed to clear corpus rows: %w", err), apperrors.ErrDatabaseOperation)
	}
	for i := 0; i < corpus.Len(); i++ {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO faq_corpus (corpus_id, entry_index, content_hash) VALUES ($1, $2, $3)`,
			corpus.ID, i, corpus.Hash(i))
		if err != nil {
			return apperrors.Mark(fmt.Errorf("failed to insert corpus row %d: %w", i, err), apperrors.ErrDatabaseOperation)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Mark(err, apperrors.ErrDatabaseOperation)
	}
	s.logger.Info("Corpus stored", zap.String("corpus_id", corpus.ID.String()), zap.Int("entries", corpus.Len()))
	return nil
}

// SearchCorpus returns the k entries of corpusID nearest to vec by cosine
// distance, as cosine similarity scores.
func (s *PostgresStore) SearchCorpus(ctx context.Context, corpusID uuid.UUID, vec []float32, k int) ([]embedding.Hit, error) {
	const query = `
        SELECT c.entry_index, 1 - (v.embedding <=> $1) AS score
        FROM faq_corpus c
        JOIN faq_vectors v ON v.content_hash = c.content_hash
        WHERE c.corpus_id = $2
        ORDER BY v.embedding <=> $1, c.entry_index
        LIMIT $3
    `
	rows, err := s.DB.QueryContext(ctx, query, pgvector.NewVector(vec), corpusID, k)
	if err != nil {
		return nil, apperrors.Mark(fmt.Errorf("failed to search corpus: %w", err), apperrors.ErrDatabaseOperation)
	}
	defer rows.Close()

	var hits []embedding.Hit
	for rows.Next() {
		var hit embedding.Hit
		if err := rows.Scan(&hit.Index, &hit.Score); err != nil {
			return nil, apperrors.Mark(fmt.Errorf("failed to scan search hit: %w", err), apperrors.ErrDatabaseOperation)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Mark(err, apperrors.ErrDatabaseOperation)
	}
	return hits, nil
}
