package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Dimension of text-embedding-3-small vectors
const openAISmallDimension = 1536

// OpenAIEmbedder embeds text through the OpenAI embeddings API
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// OpenAIOption configures the OpenAIEmbedder
type OpenAIOption func(*OpenAIEmbedder)

// WithModel overrides the embedding model
func WithModel(model openai.EmbeddingModel, dimension int) OpenAIOption {
	return func(e *OpenAIEmbedder) {
		e.model = model
		e.dimension = dimension
	}
}

// NewOpenAIEmbedder creates an embedder using the given API key
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	e := &OpenAIEmbedder{
		client:    openai.NewClient(apiKey),
		model:     openai.SmallEmbedding3,
		dimension: openAISmallDimension,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// NewOpenAIEmbedderWithClient creates an embedder from an existing client
func NewOpenAIEmbedderWithClient(client *openai.Client) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:    client,
		model:     openai.SmallEmbedding3,
		dimension: openAISmallDimension,
	}
}

// EmbedDocument embeds a single text
func (e *OpenAIEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds multiple texts in one API call
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		embeddings[i] = item.Embedding
	}

	return embeddings, nil
}

// Dimension returns the embedding vector dimension
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}
