// Package embedding turns FAQ texts into vectors and searches them.
//
// The resolver only depends on the Searcher interface; how vectors are
// produced (llama.cpp, an OpenAI-compatible API) and where they are searched
// (in memory or in Postgres with pgvector) is decided at startup.
package embedding

import (
	"context"
	"math"
)

// Embedder produces vectors for text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// Hit is one search result: a similarity score and the position of the
// matching entry in the corpus (and therefore in the FAQ store).
type Hit struct {
	Score float64
	Index int
}

// Searcher returns up to topK hits for query, ordered by descending score.
type Searcher interface {
	Search(ctx context.Context, query string, corpus *Corpus, topK int) ([]Hit, error)
}

// normalize returns a unit-length copy of vec. Zero vectors stay zero.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(float64(v) * inv)
	}
	return out
}

// dot is the cosine similarity of two unit vectors. Vectors of different
// length score 0.
func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
