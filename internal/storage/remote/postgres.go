package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Schema is the table layout used by PostgresStore.
const Schema = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key TEXT NOT NULL,
		doc JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, key)
	);
`

// PostgresStore implements Store on a JSONB documents table. Merge writes
// use the jsonb concatenation operator so top-level fields are replaced and
// the rest of the document is kept.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a new PostgreSQL-backed document store.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "remote-postgres-store").Logger(),
	}
}

// EnsureSchema creates the documents table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		s.logger.Error().Err(err).Msg("failed to create documents table")
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Get retrieves a document by collection and key.
func (s *PostgresStore) Get(ctx context.Context, collection, key string) (Document, error) {
	query := `
		SELECT doc
		FROM documents
		WHERE collection = $1 AND key = $2
	`

	var data []byte
	err := s.pool.QueryRow(ctx, query, collection, key).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			s.logger.Debug().Str("collection", collection).Str("key", key).Msg("document not found")
			return nil, nil
		}
		s.logger.Error().Err(err).Str("collection", collection).Str("key", key).Msg("failed to query document")
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

// Set merges fields into the document, inserting it when absent.
func (s *PostgresStore) Set(ctx context.Context, collection, key string, fields Document) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, key, doc)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = documents.doc || EXCLUDED.doc, updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, collection, key, string(data)); err != nil {
		s.logger.Error().
			Err(err).
			Str("collection", collection).
			Str("key", key).
			Msg("failed to write document")
		return fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Debug().
		Str("collection", collection).
		Str("key", key).
		Int("fields", len(fields)).
		Msg("document written successfully")

	return nil
}
