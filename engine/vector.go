package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/embed"
	"github.com/fundlens/fundlens/llm"
	"github.com/fundlens/fundlens/log"
	"github.com/fundlens/fundlens/splitter"
	"github.com/fundlens/fundlens/vector"
)

// DefaultTopK is the number of chunks retrieved per query
const DefaultTopK = 5

// VectorEngine is the baseline retrieval-augmented engine: documents are
// chunked, embedded and stored; queries retrieve the top-k most similar
// chunks and stuff them into the answer prompt.
type VectorEngine struct {
	splitter splitter.TextSplitter
	embedder embed.Embedder
	store    vector.Store
	client   llm.Client
	topK     int
	logger   log.Logger
}

// VectorEngineOption configures a VectorEngine
type VectorEngineOption func(*VectorEngine)

// WithVectorTopK sets the default number of chunks retrieved per query
func WithVectorTopK(k int) VectorEngineOption {
	return func(e *VectorEngine) { e.topK = k }
}

// WithVectorLogger sets the engine logger
func WithVectorLogger(logger log.Logger) VectorEngineOption {
	return func(e *VectorEngine) { e.logger = logger }
}

// WithSplitter overrides the text splitter used during ingestion
func WithSplitter(s splitter.TextSplitter) VectorEngineOption {
	return func(e *VectorEngine) { e.splitter = s }
}

// NewVectorEngine creates a vector-search engine
func NewVectorEngine(embedder embed.Embedder, store vector.Store, client llm.Client, opts ...VectorEngineOption) *VectorEngine {
	e := &VectorEngine{
		splitter: splitter.NewSimpleTextSplitter(splitter.DefaultChunkSize, splitter.DefaultChunkOverlap),
		embedder: embedder,
		store:    store,
		client:   client,
		topK:     DefaultTopK,
		logger:   log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingest splits documents into chunks and adds them to the vector store
func (e *VectorEngine) Ingest(ctx context.Context, docs []document.Document) error {
	chunks := e.splitter.SplitDocuments(docs)

	e.logger.Info("ingesting %d documents as %d chunks", len(docs), len(chunks))
	if err := e.store.Add(ctx, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

// Query retrieves the most similar chunks and generates an answer from them
func (e *VectorEngine) Query(ctx context.Context, question string, opts ...QueryOption) (*QueryResult, error) {
	start := time.Now()
	options := applyQueryOptions(queryOptions{topK: e.topK}, opts)

	queryEmbedding, err := e.embedder.EmbedDocument(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var results []document.SearchResult
	if len(options.filter) > 0 {
		results, err = e.store.SearchWithFilter(ctx, queryEmbedding, options.topK, options.filter)
	} else {
		results, err = e.store.Search(ctx, queryEmbedding, options.topK)
	}
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	if len(results) == 0 {
		return &QueryResult{
			Query:        question,
			Answer:       NoAnswerFound,
			ResponseTime: time.Since(start),
		}, nil
	}

	contextText := buildVectorContext(results)
	answer, err := e.client.Generate(ctx, llm.AnswerPrompt(contextText, question))
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	sources := make([]document.Document, len(results))
	for i, r := range results {
		sources[i] = r.Document
	}

	return &QueryResult{
		Query:        question,
		Answer:       answer,
		Sources:      sources,
		Context:      contextText,
		Confidence:   results[0].Score,
		ResponseTime: time.Since(start),
		Metadata: map[string]any{
			"engine":    "vector",
			"retrieved": len(results),
		},
	}, nil
}

// Close closes the underlying vector store
func (e *VectorEngine) Close() error { return e.store.Close() }

func buildVectorContext(results []document.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d]\n%s", i+1, r.Document.Content)
	}
	return b.String()
}
