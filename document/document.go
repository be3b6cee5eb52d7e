package document

import (
	"context"
	"time"
)

// Document is a unit of ingested content. A loader produces one or more
// documents from a source; splitters may later break a document into chunks
// that are themselves documents carrying chunk metadata.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Loader loads documents from a data source
type Loader interface {
	// Load loads documents from the source
	Load(ctx context.Context) ([]Document, error)

	// LoadWithMetadata loads documents and merges the given metadata into each
	LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]Document, error)
}

// SearchResult pairs a document with its retrieval score
type SearchResult struct {
	Document Document
	Score    float64
}

// MetadataMatches reports whether metadata satisfies every key/value pair in
// the filter. Numeric values are compared by value, so an int-valued filter
// still matches a float64 decoded from a persisted JSON round-trip.
func MetadataMatches(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(got, want any) bool {
	if got == want {
		return true
	}
	gf, gok := asFloat(got)
	wf, wok := asFloat(want)
	return gok && wok && gf == wf
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
