package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/embed"
)

// RedisStore keeps documents in Redis. Each document is a JSON value under a
// prefixed key, with a set holding all document IDs. Scoring happens
// client-side after an MGET of the candidates.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	embedder embed.Embedder
}

var _ Store = (*RedisStore)(nil)

// RedisOptions configures the RedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "fundlens:"
	TTL      time.Duration // Expiration for documents, default 0 (no expiration)
	Embedder embed.Embedder
}

// NewRedisStore creates a Redis-backed vector store
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "fundlens:"
	}

	return &RedisStore{
		client:   client,
		prefix:   prefix,
		ttl:      opts.TTL,
		embedder: opts.Embedder,
	}
}

// NewRedisStoreWithClient creates a store from an existing client (tests)
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "fundlens:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) docKey(id string) string {
	return fmt.Sprintf("%sdoc:%s", s.prefix, id)
}

func (s *RedisStore) idsKey() string {
	return s.prefix + "ids"
}

// Add stores documents, embedding any that lack an embedding
func (s *RedisStore) Add(ctx context.Context, docs []document.Document) error {
	pipe := s.client.Pipeline()

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			if s.embedder == nil {
				return fmt.Errorf("document %s has no embedding and no embedder is configured", doc.ID)
			}
			embedding, err := s.embedder.EmbedDocument(ctx, doc.Content)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
			doc.Embedding = embedding
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
		}

		pipe.Set(ctx, s.docKey(doc.ID), data, s.ttl)
		pipe.SAdd(ctx, s.idsKey(), doc.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.idsKey(), s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save documents to redis: %w", err)
	}
	return nil
}

// Search returns the k nearest documents
func (s *RedisStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]document.SearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter returns the k nearest documents matching the filter
func (s *RedisStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]document.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	docs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	if len(filter) > 0 {
		filtered := docs[:0]
		for _, doc := range docs {
			if matchesFilter(doc, filter) {
				filtered = append(filtered, doc)
			}
		}
		docs = filtered
	}

	return rankTopK(queryEmbedding, docs, k), nil
}

func (s *RedisStore) loadAll(ctx context.Context) ([]document.Document, error) {
	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list document ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}

	docs := make([]document.Document, 0, len(values))
	for i, v := range values {
		if v == nil {
			// Expired document still referenced by the id set
			continue
		}
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type for %s", keys[i])
		}

		var doc document.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %s: %w", keys[i], err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Delete removes documents by ID
func (s *RedisStore) Delete(ctx context.Context, ids []string) error {
	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.docKey(id))
		pipe.SRem(ctx, s.idsKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete documents from redis: %w", err)
	}
	return nil
}

// Stats reports store size and dimension
func (s *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.client.SCard(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	stats := &Stats{
		TotalDocuments: int(count),
		LastUpdated:    time.Now(),
	}

	if count > 0 {
		docs, err := s.loadAll(ctx)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			stats.Dimension = len(docs[0].Embedding)
		}
	}

	return stats, nil
}

// Close closes the redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
