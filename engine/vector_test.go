package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/embed"
	"github.com/fundlens/fundlens/llm"
	"github.com/fundlens/fundlens/vector"
)

func ddqDocs() []document.Document {
	return []document.Document{
		{
			ID:       "alpha_sec",
			Content:  "The phishing incident remediation included mandatory security training for all staff.",
			Metadata: map[string]any{"dataset": "ALPHA_DDQ"},
		},
		{
			ID:       "alpha_privacy",
			Content:  "Diana Reyes is responsible for data privacy oversight at Alpha Capital.",
			Metadata: map[string]any{"dataset": "ALPHA_DDQ"},
		},
		{
			ID:       "beta_perf",
			Content:  "Quarterly portfolio returns at Beta Fund exceeded all benchmarks.",
			Metadata: map[string]any{"dataset": "BETA_DDQ"},
		},
	}
}

func newVectorEngine(t *testing.T, client llm.Client) *VectorEngine {
	t.Helper()
	embedder := embed.NewHashEmbedder(256)
	store := vector.NewMemoryStore(embedder)
	return NewVectorEngine(embedder, store, client)
}

func TestVectorEngine_IngestAndQuery(t *testing.T) {
	ctx := context.Background()
	client := llm.NewStaticClient("The remediation was mandatory security training.")
	eng := newVectorEngine(t, client)

	require.NoError(t, eng.Ingest(ctx, ddqDocs()))

	result, err := eng.Query(ctx, "What remediation followed the phishing incident?")
	require.NoError(t, err)

	assert.Equal(t, "The remediation was mandatory security training.", result.Answer)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, "alpha_sec", result.Sources[0].Metadata["parent_id"])
	assert.Greater(t, result.Confidence, 0.0)
	assert.Equal(t, "vector", result.Metadata["engine"])

	// the prompt carries both the retrieved context and the question
	require.Len(t, client.Prompts, 1)
	assert.Contains(t, client.Prompts[0], "phishing incident remediation")
	assert.Contains(t, client.Prompts[0], "What remediation followed the phishing incident?")
}

func TestVectorEngine_EmptyStore(t *testing.T) {
	ctx := context.Background()
	client := llm.NewStaticClient("should never be used")
	eng := newVectorEngine(t, client)

	result, err := eng.Query(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, NoAnswerFound, result.Answer)
	assert.Empty(t, client.Prompts)
}

func TestVectorEngine_QueryWithFilter(t *testing.T) {
	ctx := context.Background()
	client := llm.NewStaticClient("Returns exceeded benchmarks.")
	eng := newVectorEngine(t, client)

	require.NoError(t, eng.Ingest(ctx, ddqDocs()))

	result, err := eng.Query(ctx, "how did the portfolio perform?",
		WithFilter(map[string]any{"dataset": "BETA_DDQ"}))
	require.NoError(t, err)

	require.NotEmpty(t, result.Sources)
	for _, src := range result.Sources {
		assert.Equal(t, "BETA_DDQ", src.Metadata["dataset"])
	}
}

func TestVectorEngine_TopKOption(t *testing.T) {
	ctx := context.Background()
	client := llm.NewStaticClient("answer")
	eng := newVectorEngine(t, client)

	require.NoError(t, eng.Ingest(ctx, ddqDocs()))

	result, err := eng.Query(ctx, "privacy", WithTopK(1))
	require.NoError(t, err)
	assert.Len(t, result.Sources, 1)
}
