package kg

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryGraph is an in-memory Graph implementation. It keeps secondary
// indexes by entity name and type so lookups stay cheap while the graph is
// rebuilt on every ingestion run.
type MemoryGraph struct {
	mu            sync.RWMutex
	entities      map[string]*Entity
	relationships map[string]*Relationship
	byName        map[string][]string // lowercased name -> entity IDs
	byType        map[string][]string // entity type -> entity IDs
	outgoing      map[string][]string // entity ID -> relationship IDs
	incoming      map[string][]string
}

// NewMemoryGraph creates an empty in-memory graph
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		entities:      make(map[string]*Entity),
		relationships: make(map[string]*Relationship),
		byName:        make(map[string][]string),
		byType:        make(map[string][]string),
		outgoing:      make(map[string][]string),
		incoming:      make(map[string][]string),
	}
}

// AddEntity upserts an entity, merging description and properties on conflict
func (g *MemoryGraph) AddEntity(ctx context.Context, entity *Entity) error {
	if entity.ID == "" {
		entity.ID = EntityID(entity.Name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.entities[entity.ID]; ok {
		mergeEntity(existing, entity)
		return nil
	}

	stored := *entity
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	g.entities[stored.ID] = &stored

	nameKey := strings.ToLower(stored.Name)
	g.byName[nameKey] = append(g.byName[nameKey], stored.ID)
	g.byType[stored.Type] = append(g.byType[stored.Type], stored.ID)
	return nil
}

// AddRelationship upserts a relationship between two known entities
func (g *MemoryGraph) AddRelationship(ctx context.Context, rel *Relationship) error {
	if rel.ID == "" {
		rel.ID = RelationshipID(rel.Source, rel.Type, rel.Target)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.entities[rel.Source]; !ok {
		return ErrEntityNotFound
	}
	if _, ok := g.entities[rel.Target]; !ok {
		return ErrEntityNotFound
	}

	if existing, ok := g.relationships[rel.ID]; ok {
		if rel.Weight > existing.Weight {
			existing.Weight = rel.Weight
		}
		if existing.Description == "" {
			existing.Description = rel.Description
		}
		return nil
	}

	stored := *rel
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	g.relationships[stored.ID] = &stored
	g.outgoing[stored.Source] = append(g.outgoing[stored.Source], stored.ID)
	g.incoming[stored.Target] = append(g.incoming[stored.Target], stored.ID)
	return nil
}

// GetEntity retrieves an entity by ID
func (g *MemoryGraph) GetEntity(ctx context.Context, id string) (*Entity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entity, ok := g.entities[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	copied := *entity
	return &copied, nil
}

// FindEntitiesByName returns entities whose name contains the given text
func (g *MemoryGraph) FindEntitiesByName(ctx context.Context, name string) ([]*Entity, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var matches []*Entity
	for key, ids := range g.byName {
		if !strings.Contains(key, needle) {
			continue
		}
		for _, id := range ids {
			copied := *g.entities[id]
			matches = append(matches, &copied)
		}
	}
	return matches, nil
}

// EntitiesByType returns up to limit entities of the given type
func (g *MemoryGraph) EntitiesByType(ctx context.Context, entityType string, limit int) ([]*Entity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.byType[entityType]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		copied := *g.entities[id]
		out = append(out, &copied)
	}
	return out, nil
}

// Neighbors walks the graph breadth-first from entityID up to maxDepth hops
func (g *MemoryGraph) Neighbors(ctx context.Context, entityID string, maxDepth int) (*Neighborhood, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	start, ok := g.entities[entityID]
	if !ok {
		return nil, ErrEntityNotFound
	}

	visited := map[string]bool{entityID: true}
	seenRels := map[string]bool{}
	hood := &Neighborhood{Entities: []*Entity{copyEntity(start)}}

	frontier := []string{entityID}
	for depth := 0; depth < maxDepth; depth++ {
		var next []string
		for _, id := range frontier {
			// collect into a fresh slice: appending to g.outgoing[id] under an
			// RLock would write into its spare capacity
			relIDs := make([]string, 0, len(g.outgoing[id])+len(g.incoming[id]))
			relIDs = append(relIDs, g.outgoing[id]...)
			relIDs = append(relIDs, g.incoming[id]...)
			for _, relID := range relIDs {
				rel := g.relationships[relID]
				if !seenRels[relID] {
					seenRels[relID] = true
					copied := *rel
					hood.Relationships = append(hood.Relationships, &copied)
				}
				other := rel.Target
				if other == id {
					other = rel.Source
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				hood.Entities = append(hood.Entities, copyEntity(g.entities[other]))
				next = append(next, other)
			}
		}
		frontier = next
	}
	return hood, nil
}

// Stats reports graph size
func (g *MemoryGraph) Stats(ctx context.Context) (*Stats, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return &Stats{
		EntityCount:       len(g.entities),
		RelationshipCount: len(g.relationships),
	}, nil
}

// Close is a no-op for the in-memory graph
func (g *MemoryGraph) Close() error { return nil }

func copyEntity(e *Entity) *Entity {
	copied := *e
	return &copied
}

func mergeEntity(dst, src *Entity) {
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Type == "" {
		dst.Type = src.Type
	}
	if len(src.Properties) > 0 {
		if dst.Properties == nil {
			dst.Properties = make(map[string]any, len(src.Properties))
		}
		for k, v := range src.Properties {
			if _, ok := dst.Properties[k]; !ok {
				dst.Properties[k] = v
			}
		}
	}
}
