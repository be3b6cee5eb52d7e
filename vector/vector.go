// Package vector provides embedding stores with brute-force cosine search.
//
// Four implementations are available: an in-memory store for demos and tests,
// a SQLite-backed store for single-file persistence, a Redis-backed store, and
// a PostgreSQL-backed store. All of them score candidates client-side with
// cosine similarity, which is exact and fast enough for due-diligence corpora
// of a few thousand chunks.
package vector

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/fundlens/fundlens/document"
)

// Store persists document embeddings and answers similarity queries
type Store interface {
	// Add stores documents. Documents without an embedding are embedded with
	// the store's configured embedder, if any.
	Add(ctx context.Context, docs []document.Document) error

	// Search returns the k documents closest to the query embedding, ordered
	// by descending cosine similarity
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]document.SearchResult, error)

	// SearchWithFilter restricts candidates to documents whose metadata
	// matches every key in the filter
	SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]document.SearchResult, error)

	// Delete removes documents by ID
	Delete(ctx context.Context, ids []string) error

	// Stats reports store size and dimension
	Stats(ctx context.Context) (*Stats, error)

	// Close releases underlying resources
	Close() error
}

// Stats describes the current contents of a store
type Stats struct {
	TotalDocuments int       `json:"total_documents"`
	Dimension      int       `json:"dimension"`
	LastUpdated    time.Time `json:"last_updated"`
}

// CosineSimilarity computes cosine similarity between two vectors. Vectors of
// different lengths score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankTopK scores every candidate against the query and returns the top k
func rankTopK(query []float32, docs []document.Document, k int) []document.SearchResult {
	results := make([]document.SearchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, document.SearchResult{
			Document: doc,
			Score:    CosineSimilarity(query, doc.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// matchesFilter reports whether the document metadata satisfies every filter
// key. Comparison is numeric-tolerant: persisted stores decode int metadata
// back as float64, and those must still match an int-valued filter.
func matchesFilter(doc document.Document, filter map[string]any) bool {
	return document.MetadataMatches(doc.Metadata, filter)
}
