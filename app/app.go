// Package app wires configuration, the FAQ store, embeddings and the
// resolver together. The HTTP server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"faq-assistant/config"
	"faq-assistant/database"
	"faq-assistant/embedding"
	apperrors "faq-assistant/errors"
	"faq-assistant/faq"
	"faq-assistant/llmclient"
	"faq-assistant/resolver"

	"go.uber.org/zap"
)

// App holds the long-lived components built at startup.
type App struct {
	Config   *config.Config
	Store    *faq.Store
	Corpus   *embedding.Corpus
	LLM      *llmclient.Client
	Resolver *resolver.Resolver

	closers []func() error
	logger  *zap.Logger
}

// Build loads the FAQ sources, builds the embedding corpus and the resolver.
// Only configuration errors (including a malformed DATABASE_URL) fail the
// build; an unreachable embedding backend or database leaves the app running
// in lexical-only mode.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, logger: logger}

	a.Store = faq.Load(logger, cfg.FAQFiles...)
	a.LLM = llmclient.New(cfg, logger)

	embedder, err := a.newEmbedder()
	if err != nil {
		return nil, err
	}

	var searcher embedding.Searcher
	if embedder != nil {
		searcher, err = a.buildSemantic(ctx, embedder)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Resolver = resolver.New(a.Store, a.Corpus, searcher, a.LLM, resolver.OptionsFromConfig(cfg), logger)
	logger.Info("FAQ assistant ready",
		zap.Int("entries", a.Store.Len()),
		zap.Int("corpus", a.Corpus.Len()),
		zap.Bool("semantic", a.Resolver.SemanticAvailable()))
	return a, nil
}

func (a *App) newEmbedder() (embedding.Embedder, error) {
	cfg := a.Config
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderNone:
		a.logger.Info("Embedding provider disabled, semantic search unavailable")
		return nil, nil
	case config.EmbeddingProviderLlamaCpp, "":
		return embedding.NewLlamaCppEmbedder(a.LLM, cfg.EmbeddingLLMHost, cfg.EmbeddingModel), nil
	case config.EmbeddingProviderOpenAI:
		embedder, err := embedding.NewLangchainEmbedder(cfg.EmbeddingLLMHost, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, a.logger)
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", cfg.EmbeddingProvider)
	}
}

// buildSemantic builds the corpus and the searcher for the configured vector
// backend. Backend failures are logged and yield a nil searcher.
func (a *App) buildSemantic(ctx context.Context, embedder embedding.Embedder) (embedding.Searcher, error) {
	cfg := a.Config

	queryEmbedder, err := embedding.NewCachedEmbedder(embedder, cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}

	switch cfg.VectorBackend {
	case config.VectorBackendPgvector:
		return a.buildPgvector(ctx, embedder, queryEmbedder)
	case config.VectorBackendMemory, "":
		opts := embedding.BuildOptions{
			Workers:   cfg.EmbeddingWorkers,
			BatchSize: cfg.EmbeddingBatch,
			Logger:    a.logger,
		}
		if cfg.EmbeddingCacheDir != "" {
			cache, err := embedding.OpenBadgerCache(cfg.EmbeddingCacheDir, false, a.logger)
			if err != nil {
				a.logger.Warn("Embedding cache unavailable", zap.String("dir", cfg.EmbeddingCacheDir), zap.Error(err))
			} else {
				a.closers = append(a.closers, cache.Close)
				opts.Cache = cache
			}
		}
		if !a.buildCorpus(ctx, embedder, opts) {
			return nil, nil
		}
		return embedding.NewMemorySearcher(queryEmbedder, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}
}

func (a *App) buildPgvector(ctx context.Context, embedder, queryEmbedder embedding.Embedder) (embedding.Searcher, error) {
	if a.Config.DatabaseURL == "" {
		return nil, errors.New("VECTOR_BACKEND=pgvector requires DATABASE_URL")
	}

	store, err := database.NewPostgresStore(ctx, a.Config.DatabaseURL, a.logger)
	if err != nil {
		if apperrors.IsServiceUnavailable(err) {
			a.logger.Warn("Database unreachable, semantic search disabled", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	if err := store.EnsureSchema(ctx); err != nil {
		a.logger.Warn("Could not prepare database schema, semantic search disabled", zap.Error(err))
		return nil, nil
	}

	opts := embedding.BuildOptions{
		Workers:   a.Config.EmbeddingWorkers,
		BatchSize: a.Config.EmbeddingBatch,
		Cache:     store.NewVectorCache(embedder.ModelID()),
		Logger:    a.logger,
	}
	if !a.buildCorpus(ctx, embedder, opts) {
		return nil, nil
	}
	if err := store.SyncCorpus(ctx, a.Corpus); err != nil {
		a.logger.Warn("Could not store corpus, using in-memory search", zap.Error(err))
		return embedding.NewMemorySearcher(queryEmbedder, a.logger), nil
	}
	return database.NewVectorSearcher(store, queryEmbedder), nil
}

func (a *App) buildCorpus(ctx context.Context, embedder embedding.Embedder, opts embedding.BuildOptions) bool {
	corpus, err := embedding.BuildCorpus(ctx, embedder, a.Store.Texts(), opts)
	if err != nil {
		a.logger.Warn("Could not build embedding corpus, semantic search disabled", zap.Error(err))
		return false
	}
	a.Corpus = corpus
	return true
}

// Close releases caches and database connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
