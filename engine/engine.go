// Package engine provides the two retrieval engines compared by fundlens:
// a vector-search engine and a knowledge-graph engine. Both implement the
// same Engine interface so callers can swap retrieval strategies without
// touching ingestion or answer handling.
package engine

import (
	"context"
	"time"

	"github.com/fundlens/fundlens/document"
)

// QueryResult is the outcome of answering a question
type QueryResult struct {
	Query        string              `json:"query"`
	Answer       string              `json:"answer"`
	Sources      []document.Document `json:"sources,omitempty"`
	Context      string              `json:"context,omitempty"`
	Confidence   float64             `json:"confidence"`
	ResponseTime time.Duration       `json:"response_time"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

// Engine ingests documents and answers questions over them
type Engine interface {
	// Ingest adds documents to the engine's retrieval index
	Ingest(ctx context.Context, docs []document.Document) error

	// Query answers a question using the engine's retrieval strategy
	Query(ctx context.Context, question string, opts ...QueryOption) (*QueryResult, error)

	// Close releases underlying resources
	Close() error
}

// NoAnswerFound is returned when retrieval produces no usable context
const NoAnswerFound = "No relevant information found."

// QueryOption adjusts a single query
type QueryOption func(*queryOptions)

type queryOptions struct {
	topK   int
	filter map[string]any
}

// WithTopK overrides the number of results retrieved for this query. The
// graph engine treats it as a cap on the entities matched in the question.
func WithTopK(k int) QueryOption {
	return func(o *queryOptions) { o.topK = k }
}

// WithFilter restricts retrieval to documents whose metadata matches all
// key/value pairs. The graph engine applies the filter to entity properties,
// which inherit the source document's metadata at extraction time.
func WithFilter(filter map[string]any) QueryOption {
	return func(o *queryOptions) { o.filter = filter }
}

func applyQueryOptions(defaults queryOptions, opts []QueryOption) queryOptions {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}
