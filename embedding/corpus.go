package embedding

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	apperrors "faq-assistant/errors"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Corpus holds one normalized vector per FAQ entry, in store order. It is
// built once and never modified.
type Corpus struct {
	ID      uuid.UUID
	Model   string
	vectors [][]float32
	hashes  []string
}

// Len returns the number of vectors in the corpus.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.vectors)
}

// Vector returns the normalized vector of entry i.
func (c *Corpus) Vector(i int) []float32 {
	return c.vectors[i]
}

// Hash returns the content hash of entry i's text.
func (c *Corpus) Hash(i int) string {
	return c.hashes[i]
}

// NewCorpus builds a corpus from precomputed vectors.
func NewCorpus(model string, texts []string, vectors [][]float32) (*Corpus, error) {
	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("%d texts but %d vectors", len(texts), len(vectors))
	}
	hashes := make([]string, len(texts))
	normalized := make([][]float32, len(vectors))
	for i := range texts {
		hashes[i] = ContentHash(model, texts[i])
		normalized[i] = normalize(vectors[i])
	}
	return &Corpus{
		ID:      corpusID(model, hashes),
		Model:   model,
		vectors: normalized,
		hashes:  hashes,
	}, nil
}

// ContentHash is the cache key of text embedded with model.
func ContentHash(model, text string) string {
	h := sha1.Sum([]byte(model + "|" + text))
	return hex.EncodeToString(h[:])
}

// corpusID is stable for the same model and texts, so a persisted corpus can
// be reused across restarts.
func corpusID(model string, hashes []string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(model+"|"+strings.Join(hashes, ",")))
}

// VectorCache persists embeddings by content hash.
type VectorCache interface {
	GetMany(ctx context.Context, keys []string) (map[string][]float32, error)
	PutMany(ctx context.Context, vectors map[string][]float32) error
}

// BuildOptions controls BuildCorpus.
type BuildOptions struct {
	Workers int
	// BatchSize is the number of texts per EmbedTexts call.
	BatchSize int
	Cache     VectorCache
	Logger    *zap.Logger
}

// BuildCorpus embeds texts in batches on a bounded worker pool. Vectors
// already present in the cache are reused; new ones are written back. Cache failures are
// logged and otherwise ignored, embedding failures abort the build.
func BuildCorpus(ctx context.Context, embedder Embedder, texts []string, opts BuildOptions) (*Corpus, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	model := embedder.ModelID()

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = ContentHash(model, text)
	}

	vectors := make([][]float32, len(texts))
	if opts.Cache != nil && len(keys) > 0 {
		cached, err := opts.Cache.GetMany(ctx, keys)
		if err != nil {
			logger.Warn("Embedding cache lookup failed", zap.Error(err))
		}
		for i, key := range keys {
			if vec, ok := cached[key]; ok {
				vectors[i] = vec
			}
		}
	}

	var missing []int
	for i := range vectors {
		if vectors[i] == nil {
			missing = append(missing, i)
		}
	}
	logger.Info("Building embedding corpus",
		zap.String("model", model),
		zap.Int("entries", len(texts)),
		zap.Int("cached", len(texts)-len(missing)))

	if len(missing) > 0 {
		if err := embedMissing(ctx, embedder, texts, missing, vectors, opts.Workers, opts.BatchSize); err != nil {
			return nil, err
		}
		if opts.Cache != nil {
			fresh := make(map[string][]float32, len(missing))
			for _, i := range missing {
				fresh[keys[i]] = vectors[i]
			}
			if err := opts.Cache.PutMany(ctx, fresh); err != nil {
				logger.Warn("Embedding cache write failed", zap.Error(err))
			}
		}
	}

	return NewCorpus(model, texts, vectors)
}

// defaultBatchSize is the number of texts sent per EmbedTexts call when
// BuildOptions.BatchSize is unset.
const defaultBatchSize = 16

func embedMissing(ctx context.Context, embedder Embedder, texts []string, missing []int, vectors [][]float32, workers, batchSize int) error {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(missing); start += batchSize {
		batch := missing[start:min(start+batchSize, len(missing))]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			err := embedBatch(ctx, embedder, texts, batch, vectors)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("submit embedding task: %w", submitErr)
			}
			mu.Unlock()
			break
		}
	}
	wg.Wait()
	return firstErr
}

// embedBatch embeds the texts at indexes with one EmbedTexts call. Each batch
// writes a disjoint set of slots in vectors.
func embedBatch(ctx context.Context, embedder Embedder, texts []string, indexes []int, vectors [][]float32) error {
	batch := make([]string, len(indexes))
	for j, i := range indexes {
		batch[j] = texts[i]
	}

	out, err := embedder.EmbedTexts(ctx, batch)
	if err == nil && len(out) != len(batch) {
		err = fmt.Errorf("got %d vectors for %d texts", len(out), len(batch))
	}
	if err != nil {
		return apperrors.WrapErrorf(apperrors.Mark(err, apperrors.ErrEmbedding), "embed entries %d..%d", indexes[0], indexes[len(indexes)-1])
	}
	for j, i := range indexes {
		if len(out[j]) == 0 {
			return apperrors.WrapErrorf(apperrors.Mark(fmt.Errorf("empty vector"), apperrors.ErrEmbedding), "embed entry %d", i)
		}
		vectors[i] = out[j]
	}
	return nil
}
