package kg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteGraph persists the knowledge graph in a SQLite database so an
// extracted graph survives between runs.
type SQLiteGraph struct {
	db *sql.DB
}

// NewSQLiteGraph opens (and initializes) a graph database at path
func NewSQLiteGraph(path string) (*SQLiteGraph, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph database: %w", err)
	}

	g := &SQLiteGraph{db: db}
	if err := g.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

func (g *SQLiteGraph) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT,
		source_doc_id TEXT,
		properties TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);

	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT,
		weight REAL,
		properties TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (source) REFERENCES entities(id),
		FOREIGN KEY (target) REFERENCES entities(id)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target);
	`
	if _, err := g.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create graph schema: %w", err)
	}
	return nil
}

// AddEntity upserts an entity row
func (g *SQLiteGraph) AddEntity(ctx context.Context, entity *Entity) error {
	if entity.ID == "" {
		entity.ID = EntityID(entity.Name)
	}
	props, err := json.Marshal(entity.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal entity properties: %w", err)
	}
	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO entities (id, name, type, description, source_doc_id, properties, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = CASE WHEN entities.description = '' THEN excluded.description ELSE entities.description END
	`, entity.ID, entity.Name, entity.Type, entity.Description, entity.SourceDocID, string(props), createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	return nil
}

// AddRelationship upserts a relationship row
func (g *SQLiteGraph) AddRelationship(ctx context.Context, rel *Relationship) error {
	if rel.ID == "" {
		rel.ID = RelationshipID(rel.Source, rel.Type, rel.Target)
	}
	for _, id := range []string{rel.Source, rel.Target} {
		if _, err := g.GetEntity(ctx, id); err != nil {
			return err
		}
	}

	props, err := json.Marshal(rel.Properties)
	if err != nil {
		return fmt.Errorf("failed to marshal relationship properties: %w", err)
	}
	createdAt := rel.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = g.db.ExecContext(ctx, `
		INSERT INTO relationships (id, source, target, type, description, weight, properties, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			weight = MAX(relationships.weight, excluded.weight)
	`, rel.ID, rel.Source, rel.Target, rel.Type, rel.Description, rel.Weight, string(props), createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

// GetEntity retrieves an entity by ID
func (g *SQLiteGraph) GetEntity(ctx context.Context, id string) (*Entity, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT id, name, type, description, source_doc_id, properties, created_at
		FROM entities WHERE id = ?
	`, id)

	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, ErrEntityNotFound
	}
	return entity, err
}

// FindEntitiesByName returns entities whose name contains the text, case-insensitively
func (g *SQLiteGraph) FindEntitiesByName(ctx context.Context, name string) ([]*Entity, error) {
	needle := strings.TrimSpace(name)
	if needle == "" {
		return nil, nil
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT id, name, type, description, source_doc_id, properties, created_at
		FROM entities WHERE name LIKE ? COLLATE NOCASE
	`, "%"+needle+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// EntitiesByType returns up to limit entities of the given type
func (g *SQLiteGraph) EntitiesByType(ctx context.Context, entityType string, limit int) ([]*Entity, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, name, type, description, source_doc_id, properties, created_at
		FROM entities WHERE type = ? LIMIT ?
	`, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// Neighbors walks the stored graph breadth-first up to maxDepth hops
func (g *SQLiteGraph) Neighbors(ctx context.Context, entityID string, maxDepth int) (*Neighborhood, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}

	start, err := g.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{entityID: true}
	seenRels := map[string]bool{}
	hood := &Neighborhood{Entities: []*Entity{start}}

	frontier := []string{entityID}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			rels, err := g.relationshipsTouching(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, rel := range rels {
				if !seenRels[rel.ID] {
					seenRels[rel.ID] = true
					hood.Relationships = append(hood.Relationships, rel)
				}
				other := rel.Target
				if other == id {
					other = rel.Source
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				entity, err := g.GetEntity(ctx, other)
				if err != nil {
					return nil, err
				}
				hood.Entities = append(hood.Entities, entity)
				next = append(next, other)
			}
		}
		frontier = next
	}
	return hood, nil
}

func (g *SQLiteGraph) relationshipsTouching(ctx context.Context, entityID string) ([]*Relationship, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT id, source, target, type, description, weight, properties, created_at
		FROM relationships WHERE source = ? OR target = ?
	`, entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var rels []*Relationship
	for rows.Next() {
		var rel Relationship
		var props string
		if err := rows.Scan(&rel.ID, &rel.Source, &rel.Target, &rel.Type,
			&rel.Description, &rel.Weight, &props, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		if props != "" && props != "null" {
			if err := json.Unmarshal([]byte(props), &rel.Properties); err != nil {
				return nil, fmt.Errorf("failed to unmarshal relationship properties: %w", err)
			}
		}
		rels = append(rels, &rel)
	}
	return rels, rows.Err()
}

// Stats reports graph size
func (g *SQLiteGraph) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if err := g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities").Scan(&stats.EntityCount); err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}
	if err := g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM relationships").Scan(&stats.RelationshipCount); err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}
	return stats, nil
}

// Close closes the underlying database
func (g *SQLiteGraph) Close() error { return g.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*Entity, error) {
	var entity Entity
	var props string
	if err := row.Scan(&entity.ID, &entity.Name, &entity.Type, &entity.Description,
		&entity.SourceDocID, &props, &entity.CreatedAt); err != nil {
		return nil, err
	}
	if props != "" && props != "null" {
		if err := json.Unmarshal([]byte(props), &entity.Properties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity properties: %w", err)
		}
	}
	return &entity, nil
}

func scanEntities(rows *sql.Rows) ([]*Entity, error) {
	var entities []*Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}
