package vector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/embed"
)

// MemoryStore is an in-memory vector store. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     []document.Document
	embedder embed.Embedder
	updated  time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore. The embedder may be nil if all added
// documents already carry embeddings.
func NewMemoryStore(embedder embed.Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

// Add stores documents, embedding any that lack an embedding
func (s *MemoryStore) Add(ctx context.Context, docs []document.Document) error {
	prepared := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			if s.embedder == nil {
				return fmt.Errorf("document %s has no embedding and no embedder is configured", doc.ID)
			}
			embedding, err := s.embedder.EmbedDocument(ctx, doc.Content)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
			doc.Embedding = embedding
		}
		prepared = append(prepared, doc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, prepared...)
	s.updated = time.Now()
	return nil
}

// Search returns the k nearest documents
func (s *MemoryStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]document.SearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter returns the k nearest documents matching the filter
func (s *MemoryStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]document.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	candidates := make([]document.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if len(filter) == 0 || matchesFilter(doc, filter) {
			candidates = append(candidates, doc)
		}
	}
	s.mu.RUnlock()

	return rankTopK(queryEmbedding, candidates, k), nil
}

// Delete removes documents by ID
func (s *MemoryStore) Delete(ctx context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.docs[:0]
	for _, doc := range s.docs {
		if !drop[doc.ID] {
			kept = append(kept, doc)
		}
	}
	s.docs = kept
	s.updated = time.Now()
	return nil
}

// Stats reports store size and dimension
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalDocuments: len(s.docs),
		LastUpdated:    s.updated,
	}
	if len(s.docs) > 0 {
		stats.Dimension = len(s.docs[0].Embedding)
	}
	return stats, nil
}

// Close clears the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	return nil
}
