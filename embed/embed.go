// Package embed turns text into vectors for similarity search.
package embed

import (
	"context"
)

// Embedder produces vector representations of text
type Embedder interface {
	// EmbedDocument embeds a single text
	EmbedDocument(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts in one call
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension
	Dimension() int
}
