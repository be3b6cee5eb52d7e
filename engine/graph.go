package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/kg"
	"github.com/fundlens/fundlens/llm"
	"github.com/fundlens/fundlens/log"
)

// DefaultMaxDepth is how far graph traversal walks from each matched entity
const DefaultMaxDepth = 2

// GraphEngine answers questions by traversing a knowledge graph. Ingestion
// extracts entities and relationships from documents; queries locate the
// entities mentioned in the question, collect their neighborhoods and hand
// the resulting graph context to the language model.
type GraphEngine struct {
	extractor *kg.Extractor
	graph     kg.Graph
	client    llm.Client
	maxDepth  int
	logger    log.Logger
}

// GraphEngineOption configures a GraphEngine
type GraphEngineOption func(*GraphEngine)

// WithMaxDepth sets the traversal depth from each matched entity
func WithMaxDepth(depth int) GraphEngineOption {
	return func(e *GraphEngine) { e.maxDepth = depth }
}

// WithGraphLogger sets the engine logger
func WithGraphLogger(logger log.Logger) GraphEngineOption {
	return func(e *GraphEngine) { e.logger = logger }
}

// NewGraphEngine creates a knowledge-graph engine
func NewGraphEngine(extractor *kg.Extractor, graph kg.Graph, client llm.Client, opts ...GraphEngineOption) *GraphEngine {
	e := &GraphEngine{
		extractor: extractor,
		graph:     graph,
		client:    client,
		maxDepth:  DefaultMaxDepth,
		logger:    log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingest extracts entities and relationships from documents into the graph
func (e *GraphEngine) Ingest(ctx context.Context, docs []document.Document) error {
	if err := e.extractor.IngestDocuments(ctx, e.graph, docs); err != nil {
		return err
	}
	stats, err := e.graph.Stats(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("graph ingestion complete: %d entities, %d relationships",
		stats.EntityCount, stats.RelationshipCount)
	return nil
}

// Query matches question entities against the graph and answers from the
// surrounding subgraph
func (e *GraphEngine) Query(ctx context.Context, question string, opts ...QueryOption) (*QueryResult, error) {
	start := time.Now()
	options := applyQueryOptions(queryOptions{}, opts)

	matched, err := e.matchQueryEntities(ctx, question, options.filter)
	if err != nil {
		return nil, err
	}
	if options.topK > 0 && len(matched) > options.topK {
		matched = matched[:options.topK]
	}
	if len(matched) == 0 {
		return &QueryResult{
			Query:        question,
			Answer:       NoAnswerFound,
			ResponseTime: time.Since(start),
		}, nil
	}

	entities, relationships, err := e.collectNeighborhoods(ctx, matched, options.filter)
	if err != nil {
		return nil, err
	}

	graphContext := buildGraphContext(entities, relationships)
	answer, err := e.client.Generate(ctx, llm.AnswerPrompt(graphContext, question))
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &QueryResult{
		Query:        question,
		Answer:       answer,
		Context:      graphContext,
		Confidence:   graphConfidence(len(matched), entities, relationships),
		ResponseTime: time.Since(start),
		Metadata: map[string]any{
			"engine":          "graph",
			"matched":         len(matched),
			"entities":        len(entities),
			"relationships":   len(relationships),
			"traversal_depth": e.maxDepth,
		},
	}, nil
}

// Close closes the underlying graph
func (e *GraphEngine) Close() error { return e.graph.Close() }

// matchQueryEntities extracts candidate entity names from the question and
// resolves them against the graph. Entities whose properties do not satisfy
// the filter are never used as traversal seeds.
func (e *GraphEngine) matchQueryEntities(ctx context.Context, question string, filter map[string]any) ([]*kg.Entity, error) {
	candidates, _, err := e.extractor.Extract(ctx, document.Document{ID: "query", Content: question})
	if err != nil {
		return nil, fmt.Errorf("failed to extract query entities: %w", err)
	}

	seen := make(map[string]bool)
	var matched []*kg.Entity
	for _, candidate := range candidates {
		found, err := e.graph.FindEntitiesByName(ctx, candidate.Name)
		if err != nil {
			return nil, err
		}
		for _, entity := range found {
			if seen[entity.ID] {
				continue
			}
			if len(filter) > 0 && !document.MetadataMatches(entity.Properties, filter) {
				continue
			}
			seen[entity.ID] = true
			matched = append(matched, entity)
		}
	}
	return matched, nil
}

// collectNeighborhoods walks out from each matched entity. With a filter,
// out-of-scope neighbors are dropped, along with any relationship touching a
// dropped entity, so graph context never crosses a dataset boundary.
func (e *GraphEngine) collectNeighborhoods(ctx context.Context, matched []*kg.Entity, filter map[string]any) ([]*kg.Entity, []*kg.Relationship, error) {
	seenEntities := make(map[string]bool)
	seenRels := make(map[string]bool)
	var entities []*kg.Entity
	var relationships []*kg.Relationship

	for _, entity := range matched {
		hood, err := e.graph.Neighbors(ctx, entity.ID, e.maxDepth)
		if err != nil {
			return nil, nil, fmt.Errorf("graph traversal failed at %s: %w", entity.ID, err)
		}
		for _, neighbor := range hood.Entities {
			if seenEntities[neighbor.ID] {
				continue
			}
			if len(filter) > 0 && !document.MetadataMatches(neighbor.Properties, filter) {
				continue
			}
			seenEntities[neighbor.ID] = true
			entities = append(entities, neighbor)
		}
		for _, rel := range hood.Relationships {
			if seenRels[rel.ID] {
				continue
			}
			if len(filter) > 0 && (!seenEntities[rel.Source] || !seenEntities[rel.Target]) {
				continue
			}
			seenRels[rel.ID] = true
			relationships = append(relationships, rel)
		}
	}
	return entities, relationships, nil
}

func buildGraphContext(entities []*kg.Entity, relationships []*kg.Relationship) string {
	var b strings.Builder
	b.WriteString("Knowledge Graph Information:\n\nRelevant Entities:\n")
	for _, entity := range entities {
		fmt.Fprintf(&b, "- %s (%s)", entity.Name, entity.Type)
		if entity.Description != "" {
			fmt.Fprintf(&b, ": %s", entity.Description)
		}
		b.WriteString("\n")
	}

	if len(relationships) > 0 {
		b.WriteString("\nRelationships:\n")
		for _, rel := range relationships {
			fmt.Fprintf(&b, "- %s -> %s (%s)\n", rel.Source, rel.Target, rel.Type)
		}
	}
	return b.String()
}

// graphConfidence scores answer confidence from the richness of the matched
// subgraph, capped at 1.0
func graphConfidence(matched int, entities []*kg.Entity, relationships []*kg.Relationship) float64 {
	confidence := float64(len(entities)) / 10.0
	if matched > 0 {
		confidence += 0.3
	}
	confidence += 0.1 * float64(len(relationships))
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
