package vector

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundlens/fundlens/embed"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "test:")
	store.embedder = embed.NewHashEmbedder(128)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	embedder := embed.NewHashEmbedder(128)

	require.NoError(t, store.Add(ctx, seedDocs()))

	query, err := embedder.EmbedDocument(ctx, "phishing incident remediation")
	require.NoError(t, err)

	results, err := store.Search(ctx, query, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha_1", results[0].Document.ID)
}

func TestRedisStore_Filter(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	embedder := embed.NewHashEmbedder(128)

	require.NoError(t, store.Add(ctx, seedDocs()))

	query, _ := embedder.EmbedDocument(ctx, "anything at all")
	results, err := store.SearchWithFilter(ctx, query, 10, map[string]any{"dataset": "ALPHA_DDQ"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "ALPHA_DDQ", r.Document.Metadata["dataset"])
	}
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	require.NoError(t, store.Add(ctx, seedDocs()))

	require.NoError(t, store.Delete(ctx, []string{"beta_1"}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 128, stats.Dimension)
}

func TestRedisStore_EmptySearch(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	results, err := store.Search(ctx, []float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
