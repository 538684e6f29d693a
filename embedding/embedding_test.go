package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	apperrors "faq-assistant/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEmbedder maps known texts to fixed vectors and counts calls.
type fakeEmbedder struct {
	model   string
	vectors map[string][]float32
	fail    map[string]bool
	calls   atomic.Int32
	batches atomic.Int32
}

func (f *fakeEmbedder) ModelID() string { return f.model }

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.fail[text] {
		return nil, errors.New("backend down")
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.batches.Add(1)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func newFake() *fakeEmbedder {
	return &fakeEmbedder{
		model: "fake",
		vectors: map[string][]float32{
			"парк":     {1, 0, 0},
			"музей":    {0, 1, 0},
			"парк-ish": {0.9, 0.1, 0},
			"query":    {1, 0, 0},
		},
	}
}

func TestBuildCorpusAndSearch(t *testing.T) {
	fake := newFake()
	texts := []string{"музей", "парк", "парк-ish"}

	corpus, err := BuildCorpus(context.Background(), fake, texts, BuildOptions{Workers: 2})
	require.NoError(t, err)
	require.Equal(t, 3, corpus.Len())
	assert.Equal(t, "fake", corpus.Model)
	assert.InDelta(t, 1.0, dot(corpus.Vector(2), corpus.Vector(2)), 1e-6, "vectors are normalized")

	searcher := NewMemorySearcher(fake, zap.NewNop())
	hits, err := searcher.Search(context.Background(), "query", corpus, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Index)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, 2, hits[1].Index)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestBuildCorpusEmbedsInBatches(t *testing.T) {
	tests := []struct {
		name        string
		batchSize   int
		texts       int
		wantBatches int32
	}{
		{name: "even split", batchSize: 2, texts: 4, wantBatches: 2},
		{name: "short last batch", batchSize: 2, texts: 5, wantBatches: 3},
		{name: "default size", batchSize: 0, texts: 5, wantBatches: 1},
		{name: "one per batch", batchSize: 1, texts: 3, wantBatches: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			texts := make([]string, tt.texts)
			for i := range texts {
				texts[i] = fmt.Sprintf("entry %d", i)
			}
			texts[0] = "парк"

			corpus, err := BuildCorpus(context.Background(), fake, texts, BuildOptions{Workers: 2, BatchSize: tt.batchSize})
			require.NoError(t, err)
			require.Equal(t, tt.texts, corpus.Len())
			assert.Equal(t, tt.wantBatches, fake.batches.Load())
			assert.Equal(t, int32(tt.texts), fake.calls.Load())
			assert.InDelta(t, 1.0, dot(corpus.Vector(0), []float32{1, 0, 0}), 1e-6, "vectors stay aligned with texts")
		})
	}
}

// shortEmbedder drops the last vector of every batch.
type shortEmbedder struct{ *fakeEmbedder }

func (s shortEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.fakeEmbedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	return out[:len(out)-1], nil
}

func TestBuildCorpusRejectsShortBatch(t *testing.T) {
	_, err := BuildCorpus(context.Background(), shortEmbedder{newFake()}, []string{"парк", "музей"}, BuildOptions{BatchSize: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 texts")
}

func TestBuildCorpusEmpty(t *testing.T) {
	corpus, err := BuildCorpus(context.Background(), newFake(), nil, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, corpus.Len())

	hits, err := NewMemorySearcher(newFake(), nil).Search(context.Background(), "query", corpus, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuildCorpusFailure(t *testing.T) {
	fake := newFake()
	fake.fail = map[string]bool{"музей": true}

	_, err := BuildCorpus(context.Background(), fake, []string{"парк", "музей"}, BuildOptions{Workers: 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)
}

func TestCorpusIDIsStable(t *testing.T) {
	texts := []string{"парк", "музей"}
	a, err := BuildCorpus(context.Background(), newFake(), texts, BuildOptions{})
	require.NoError(t, err)
	b, err := BuildCorpus(context.Background(), newFake(), texts, BuildOptions{})
	require.NoError(t, err)
	c, err := BuildCorpus(context.Background(), newFake(), texts[:1], BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, ContentHash("fake", "парк"), a.Hash(0))
}

func TestSearchRejectsForeignCorpus(t *testing.T) {
	corpus, err := NewCorpus("other-model", []string{"парк"}, [][]float32{{1, 0, 0}})
	require.NoError(t, err)

	_, err = NewMemorySearcher(newFake(), nil).Search(context.Background(), "query", corpus, 5)
	assert.ErrorIs(t, err, apperrors.ErrStaleCorpus)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	fake := newFake()
	corpus, err := BuildCorpus(context.Background(), fake, []string{"парк"}, BuildOptions{})
	require.NoError(t, err)
	fake.fail = map[string]bool{"query": true}

	_, err = NewMemorySearcher(fake, nil).Search(context.Background(), "query", corpus, 5)
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)
}

func TestTopHitsStable(t *testing.T) {
	hits := []Hit{{0.5, 0}, {0.9, 1}, {0.5, 2}, {0.7, 3}}
	assert.Equal(t, []Hit{{0.9, 1}, {0.7, 3}, {0.5, 0}}, topHits(hits, 3))
}

func TestBadgerCacheReusesVectors(t *testing.T) {
	cache, err := OpenBadgerCache("", true, zap.NewNop())
	require.NoError(t, err)
	defer cache.Close()

	texts := []string{"парк", "музей"}
	first := newFake()
	_, err = BuildCorpus(context.Background(), first, texts, BuildOptions{Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, int32(2), first.calls.Load())

	second := newFake()
	corpus, err := BuildCorpus(context.Background(), second, append(texts, "новый"), BuildOptions{Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, int32(1), second.calls.Load(), "only the new text is embedded")
	assert.Equal(t, 3, corpus.Len())
}

func TestBadgerCacheOnDisk(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenBadgerCache(dir, false, nil)
	require.NoError(t, err)
	require.NoError(t, cache.PutMany(context.Background(), map[string][]float32{"k": {1.5, -2}}))
	require.NoError(t, cache.Close())

	cache, err = OpenBadgerCache(dir, false, nil)
	require.NoError(t, err)
	defer cache.Close()
	got, err := cache.GetMany(context.Background(), []string{"k", "absent"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"k": {1.5, -2}}, got)
}

func TestDecodeVectorRejectsCorruptData(t *testing.T) {
	_, err := decodeVector([]byte{1, 0})
	assert.Error(t, err)

	raw := encodeVector([]float32{1, 2, 3})
	_, err = decodeVector(raw[:len(raw)-1])
	assert.Error(t, err)
}

func TestCachedEmbedder(t *testing.T) {
	fake := newFake()
	embedder, err := NewCachedEmbedder(fake, 8)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		vec, err := embedder.EmbedText(context.Background(), "парк")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, vec)
	}
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, "fake", embedder.ModelID())

	fake.fail = map[string]bool{"музей": true}
	_, err = embedder.EmbedText(context.Background(), "музей")
	assert.Error(t, err)
	_, err = embedder.EmbedText(context.Background(), "музей")
	assert.Error(t, err, "errors are not cached")

	plain, err := NewCachedEmbedder(fake, 0)
	require.NoError(t, err)
	assert.Same(t, fake, plain)
}

type fakeVectorClient struct {
	mu    sync.Mutex
	hosts []string
}

func (c *fakeVectorClient) Embed(_ context.Context, host string, doc string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hosts = append(c.hosts, host)
	if doc == "" {
		return nil, fmt.Errorf("empty document")
	}
	return []float32{float32(len(doc))}, nil
}

func TestLlamaCppEmbedder(t *testing.T) {
	client := &fakeVectorClient{}
	embedder := NewLlamaCppEmbedder(client, "http://embed:8081", "e5")

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"ab", "abc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}}, vectors)
	assert.Equal(t, []string{"http://embed:8081", "http://embed:8081"}, client.hosts)
	assert.Equal(t, "e5", embedder.ModelID())

	_, err = embedder.EmbedTexts(context.Background(), []string{"ok", ""})
	assert.Error(t, err)
}

func TestLangchainEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "e5-test", req.Model)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 1}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": req.Model, "data": data})
	}))
	defer srv.Close()

	embedder, err := NewLangchainEmbedder(srv.URL+"/v1", "", "e5-test", zap.NewNop())
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, vectors)

	vec, err := embedder.EmbedText(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
}
