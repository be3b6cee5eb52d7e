package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/embed"
)

func seedDocs() []document.Document {
	return []document.Document{
		{
			ID:       "alpha_1",
			Content:  "the phishing incident remediation included mandatory training",
			Metadata: map[string]any{"dataset": "ALPHA_DDQ"},
		},
		{
			ID:       "alpha_2",
			Content:  "Diana Reyes is responsible for data privacy oversight",
			Metadata: map[string]any{"dataset": "ALPHA_DDQ"},
		},
		{
			ID:       "beta_1",
			Content:  "quarterly portfolio returns exceeded all benchmarks",
			Metadata: map[string]any{"dataset": "BETA_DDQ"},
		},
	}
}

func TestMemoryStore_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	embedder := embed.NewHashEmbedder(256)
	store := NewMemoryStore(embedder)

	require.NoError(t, store.Add(ctx, seedDocs()))

	query, err := embedder.EmbedDocument(ctx, "what remediation followed the phishing incident?")
	require.NoError(t, err)

	results, err := store.Search(ctx, query, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "alpha_1", results[0].Document.ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestMemoryStore_SearchWithFilter(t *testing.T) {
	ctx := context.Background()
	embedder := embed.NewHashEmbedder(256)
	store := NewMemoryStore(embedder)

	require.NoError(t, store.Add(ctx, seedDocs()))

	query, err := embedder.EmbedDocument(ctx, "phishing incident")
	require.NoError(t, err)

	results, err := store.SearchWithFilter(ctx, query, 10, map[string]any{"dataset": "BETA_DDQ"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "beta_1", results[0].Document.ID)
}

func TestMemoryStore_KLargerThanStore(t *testing.T) {
	ctx := context.Background()
	embedder := embed.NewHashEmbedder(64)
	store := NewMemoryStore(embedder)
	require.NoError(t, store.Add(ctx, seedDocs()))

	query, _ := embedder.EmbedDocument(ctx, "anything")
	results, err := store.Search(ctx, query, 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemoryStore_InvalidK(t *testing.T) {
	store := NewMemoryStore(embed.NewHashEmbedder(64))
	_, err := store.Search(context.Background(), []float32{1}, 0)
	assert.Error(t, err)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	embedder := embed.NewHashEmbedder(64)
	store := NewMemoryStore(embedder)
	require.NoError(t, store.Add(ctx, seedDocs()))

	require.NoError(t, store.Delete(ctx, []string{"alpha_1", "beta_1"}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)
}

func TestMemoryStore_NoEmbedderNoEmbedding(t *testing.T) {
	store := NewMemoryStore(nil)
	err := store.Add(context.Background(), []document.Document{{ID: "d", Content: "text"}})
	assert.Error(t, err)
}

func TestMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(embed.NewHashEmbedder(128))
	require.NoError(t, store.Add(ctx, seedDocs()))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, 128, stats.Dimension)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
