package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.EmbedDocument(ctx, "phishing incident remediation")
	require.NoError(t, err)
	b, err := e.EmbedDocument(ctx, "phishing incident remediation")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashEmbedder_Normalized(t *testing.T) {
	e := NewHashEmbedder(128)
	vec, err := e.EmbedDocument(context.Background(), "alpha fund soc2 compliance summary")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()

	query, err := e.EmbedDocument(ctx, "phishing incident remediation measures")
	require.NoError(t, err)
	related, err := e.EmbedDocument(ctx, "the phishing incident remediation included security training")
	require.NoError(t, err)
	unrelated, err := e.EmbedDocument(ctx, "quarterly portfolio returns exceeded benchmarks")
	require.NoError(t, err)

	assert.Greater(t, dot(query, related), dot(query, unrelated))
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	e := NewHashEmbedder(32)
	vec, err := e.EmbedDocument(context.Background(), "")
	require.NoError(t, err)

	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestHashEmbedder_Batch(t *testing.T) {
	e := NewHashEmbedder(32)
	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
}

func TestHashEmbedder_DefaultDimension(t *testing.T) {
	e := NewHashEmbedder(0)
	assert.Equal(t, 256, e.Dimension())
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("")
	assert.Error(t, err)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	if math.IsNaN(sum) {
		return 0
	}
	return sum
}
