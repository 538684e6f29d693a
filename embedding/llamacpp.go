package embedding

import (
	"context"
)

// VectorClient is the part of llmclient.Client the llama.cpp embedder uses.
type VectorClient interface {
	Embed(ctx context.Context, host string, doc string) ([]float32, error)
}

// LlamaCppEmbedder embeds through a llama.cpp server's /embedding endpoint.
type LlamaCppEmbedder struct {
	client VectorClient
	host   string
	model  string
}

var _ Embedder = (*LlamaCppEmbedder)(nil)

func NewLlamaCppEmbedder(client VectorClient, host, model string) *LlamaCppEmbedder {
	return &LlamaCppEmbedder{client: client, host: host, model: model}
}

func (e *LlamaCppEmbedder) ModelID() string { return e.model }

func (e *LlamaCppEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.host, text)
}

func (e *LlamaCppEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.client.Embed(ctx, e.host, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
