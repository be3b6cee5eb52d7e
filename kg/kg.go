// Package kg implements the knowledge graph used for graph-backed retrieval.
//
// Documents are distilled into entities and relationships by an Extractor,
// stored in a Graph, and traversed at query time to assemble context for
// answer generation. Two Graph implementations are provided: an in-memory
// graph and a SQLite-backed one.
package kg

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrEntityNotFound is returned when an entity ID has no match
var ErrEntityNotFound = errors.New("entity not found")

// Entity is a node in the knowledge graph
type Entity struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	SourceDocID string         `json:"source_doc_id,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
}

// Relationship is a directed edge between two entities
type Relationship struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Target      string         `json:"target"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Weight      float64        `json:"weight,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
}

// Neighborhood is the subgraph reachable from a starting entity
type Neighborhood struct {
	Entities      []*Entity
	Relationships []*Relationship
}

// Stats describes graph size
type Stats struct {
	EntityCount       int `json:"entity_count"`
	RelationshipCount int `json:"relationship_count"`
}

// Graph stores entities and relationships and answers traversal queries
type Graph interface {
	// AddEntity upserts an entity. Adding an existing ID merges descriptions
	// and properties rather than duplicating the node.
	AddEntity(ctx context.Context, entity *Entity) error

	// AddRelationship upserts a relationship
	AddRelationship(ctx context.Context, rel *Relationship) error

	// GetEntity retrieves an entity by ID
	GetEntity(ctx context.Context, id string) (*Entity, error)

	// FindEntitiesByName returns entities whose name contains the given text,
	// case-insensitively
	FindEntitiesByName(ctx context.Context, name string) ([]*Entity, error)

	// EntitiesByType returns up to limit entities of the given type
	EntitiesByType(ctx context.Context, entityType string, limit int) ([]*Entity, error)

	// Neighbors returns the subgraph within maxDepth hops of the entity
	Neighbors(ctx context.Context, entityID string, maxDepth int) (*Neighborhood, error)

	// Stats reports graph size
	Stats(ctx context.Context) (*Stats, error)

	// Close releases underlying resources
	Close() error
}

// EntityID derives a stable entity ID from a name. Names differing only in
// case or surrounding space map to the same node.
func EntityID(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

// RelationshipID derives a stable relationship ID from its endpoints and type
func RelationshipID(source, relType, target string) string {
	return source + "::" + strings.ToLower(relType) + "::" + target
}
