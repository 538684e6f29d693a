package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// LangchainEmbedder calls an OpenAI-compatible embeddings API through
// langchaingo.
type LangchainEmbedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *zap.Logger
}

var _ Embedder = (*LangchainEmbedder)(nil)

// NewLangchainEmbedder builds an embedder for baseURL. Local servers that do
// not check credentials accept any token, so an empty token is sent as "none".
func NewLangchainEmbedder(baseURL, token, model string, logger *zap.Logger) (*LangchainEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &LangchainEmbedder{
		embedder: embedder,
		model:    model,
		logger:   logger.With(zap.String("component", "langchain-embedder")),
	}, nil
}

func (e *LangchainEmbedder) ModelID() string { return e.model }

func (e *LangchainEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("Failed to generate embedding", zap.Error(err))
		return nil, err
	}
	return vec, nil
}

func (e *LangchainEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("Generating embeddings", zap.Int("count", len(texts)))
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("Failed to generate embeddings", zap.Int("count", len(texts)), zap.Error(err))
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
