package database

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "faq-assistant/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PostgresStore persists FAQ embeddings in Postgres with the pgvector
// extension and answers nearest-neighbour queries over them.
type PostgresStore struct {
	DB     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, apperrors.Mark(fmt.Errorf("parse connection string: %w", err), apperrors.ErrInvalidInput)
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.Mark(fmt.Errorf("ping database: %w", err), apperrors.ErrServiceUnavailable)
	}
	logger.Info("Successfully connected to the database")
	return &PostgresStore{DB: db, logger: logger}, nil
}

// EnsureSchema creates the vector extension and tables if they do not
// already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS faq_vectors (
            content_hash TEXT PRIMARY KEY,
            model TEXT NOT NULL,
            embedding vector NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS faq_corpus (
            corpus_id UUID NOT NULL,
            entry_index INT NOT NULL,
            content_hash TEXT NOT NULL REFERENCES faq_vectors(content_hash) ON DELETE CASCADE,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY (corpus_id, entry_index)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_faq_corpus_hash ON faq_corpus(content_hash)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return apperrors.Mark(fmt.Errorf("failed to execute schema statement: %w", err), apperrors.ErrDatabaseOperation)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}
