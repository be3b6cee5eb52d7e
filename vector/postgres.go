package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/embed"
)

// DBPool is the subset of pgxpool.Pool the store needs. Declared as an
// interface so tests can substitute pgxmock.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore persists documents and embeddings in PostgreSQL. Embeddings
// are stored as JSONB and scored client-side.
type PostgresStore struct {
	pool      DBPool
	tableName string
	embedder  embed.Embedder
}

var _ Store = (*PostgresStore)(nil)

// PostgresOptions configures the PostgresStore
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "documents"
	Embedder   embed.Embedder
}

// NewPostgresStore creates a Postgres-backed vector store
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "documents"
	}

	store := &PostgresStore{
		pool:      pool,
		tableName: tableName,
		embedder:  opts.Embedder,
	}

	if err := store.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// NewPostgresStoreWithPool creates a store with an existing pool.
// Useful for testing with mocks.
func NewPostgresStoreWithPool(pool DBPool, tableName string) *PostgresStore {
	if tableName == "" {
		tableName = "documents"
	}
	return &PostgresStore{pool: pool, tableName: tableName}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Add stores documents, embedding any that lack an embedding
func (s *PostgresStore) Add(ctx context.Context, docs []document.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`, s.tableName)

	for _, doc := range docs {
		embedding := doc.Embedding
		if len(embedding) == 0 {
			if s.embedder == nil {
				return fmt.Errorf("document %s has no embedding and no embedder is configured", doc.ID)
			}
			var err error
			embedding, err = s.embedder.EmbedDocument(ctx, doc.Content)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
		}

		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}
		embeddingJSON, err := json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for %s: %w", doc.ID, err)
		}

		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		if _, err := s.pool.Exec(ctx, query, doc.ID, doc.Content, metadataJSON, embeddingJSON, createdAt); err != nil {
			return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
		}
	}

	return nil
}

// Search returns the k nearest documents
func (s *PostgresStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]document.SearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter returns the k nearest documents matching the filter
func (s *PostgresStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]document.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	query := fmt.Sprintf("SELECT id, content, metadata, embedding, created_at FROM %s", s.tableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var doc document.Document
		var metadataJSON, embeddingJSON []byte

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &embeddingJSON, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", doc.ID, err)
			}
		}
		if err := json.Unmarshal(embeddingJSON, &doc.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding for %s: %w", doc.ID, err)
		}

		if len(filter) == 0 || matchesFilter(doc, filter) {
			docs = append(docs, doc)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return rankTopK(queryEmbedding, docs, k), nil
}

// Delete removes documents by ID
func (s *PostgresStore) Delete(ctx context.Context, ids []string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", s.tableName)
	if _, err := s.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// Stats reports store size and dimension
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var count int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	if err := s.pool.QueryRow(ctx, countQuery).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	stats := &Stats{
		TotalDocuments: count,
		LastUpdated:    time.Now(),
	}

	if count > 0 {
		var embeddingJSON []byte
		dimQuery := fmt.Sprintf("SELECT embedding FROM %s LIMIT 1", s.tableName)
		if err := s.pool.QueryRow(ctx, dimQuery).Scan(&embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to read embedding: %w", err)
		}
		var embedding []float32
		if err := json.Unmarshal(embeddingJSON, &embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
		stats.Dimension = len(embedding)
	}

	return stats, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
