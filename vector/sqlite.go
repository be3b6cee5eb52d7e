package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/embed"
)

// SQLiteStore persists documents and embeddings in a single SQLite file.
// Embeddings are stored as little-endian float32 blobs; similarity is computed
// in Go after loading candidates, so no SQLite extension is required.
type SQLiteStore struct {
	db        *sql.DB
	tableName string
	embedder  embed.Embedder
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteOptions configures the SQLiteStore
type SQLiteOptions struct {
	Path      string
	TableName string // Default "documents"
	Embedder  embed.Embedder
}

// NewSQLiteStore opens (or creates) a SQLite-backed vector store
func NewSQLiteStore(opts SQLiteOptions) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "documents"
	}

	store := &SQLiteStore{
		db:        db,
		tableName: tableName,
		embedder:  opts.Embedder,
	}

	if err := store.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Add stores documents, embedding any that lack an embedding
func (s *SQLiteStore) Add(ctx context.Context, docs []document.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`, s.tableName)

	for _, doc := range docs {
		embedding := doc.Embedding
		if len(embedding) == 0 {
			if s.embedder == nil {
				return fmt.Errorf("document %s has no embedding and no embedder is configured", doc.ID)
			}
			embedding, err = s.embedder.EmbedDocument(ctx, doc.Content)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
		}

		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}

		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		if _, err := tx.ExecContext(ctx, query, doc.ID, doc.Content, string(metadataJSON), encodeEmbedding(embedding), createdAt); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// Search returns the k nearest documents
func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]document.SearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter returns the k nearest documents matching the filter
func (s *SQLiteStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]document.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	docs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	if len(filter) > 0 {
		filtered := docs[:0]
		for _, doc := range docs {
			if matchesFilter(doc, filter) {
				filtered = append(filtered, doc)
			}
		}
		docs = filtered
	}

	return rankTopK(queryEmbedding, docs, k), nil
}

func (s *SQLiteStore) loadAll(ctx context.Context) ([]document.Document, error) {
	query := fmt.Sprintf("SELECT id, content, metadata, embedding, created_at FROM %s", s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var doc document.Document
		var metadataJSON sql.NullString
		var blob []byte

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &blob, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}

		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", doc.ID, err)
			}
		}

		doc.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt embedding for %s: %w", doc.ID, err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

// Delete removes documents by ID
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", id, err)
		}
	}
	return nil
}

// Stats reports store size and dimension
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var count int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	stats := &Stats{
		TotalDocuments: count,
		LastUpdated:    time.Now(),
	}

	if count > 0 {
		var blob []byte
		dimQuery := fmt.Sprintf("SELECT embedding FROM %s LIMIT 1", s.tableName)
		if err := s.db.QueryRowContext(ctx, dimQuery).Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to read embedding: %w", err)
		}
		stats.Dimension = len(blob) / 4
	}

	return stats, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeEmbedding packs a float32 slice as little-endian bytes
func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks little-endian bytes into a float32 slice
func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding, nil
}
