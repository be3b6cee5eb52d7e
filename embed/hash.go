package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is a deterministic, offline embedder. Tokens are hashed into a
// fixed number of buckets and the resulting count vector is L2-normalized, so
// texts sharing vocabulary land close together under cosine similarity. It is
// no substitute for a learned model but gives stable, meaningful rankings in
// tests and API-free demo runs.
type HashEmbedder struct {
	dimension int
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder creates a HashEmbedder with the given dimension
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dimension: dimension}
}

// EmbedDocument embeds a single text
func (e *HashEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(e.dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return vec, nil
}

// EmbedBatch embeds multiple texts
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedDocument(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Dimension returns the embedding vector dimension
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
