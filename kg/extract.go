package kg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/llm"
	"github.com/fundlens/fundlens/log"
)

// DefaultEntityTypes are the entity categories requested from the model
var DefaultEntityTypes = []string{
	"PERSON", "ORGANIZATION", "LOCATION", "DATE",
	"PRODUCT", "EVENT", "CONCEPT", "TECHNOLOGY",
}

// entityExtractionPrompt asks the model for entities as strict JSON
const entityExtractionPrompt = `Extract the key entities from the following text. For each entity provide its name, type and a one-sentence description.

Entity types: %s

Respond with JSON only, in this exact format:
{"entities": [{"name": "...", "type": "...", "description": "..."}]}

Text:
%s`

// relationshipExtractionPrompt asks the model for relationships between known entities
const relationshipExtractionPrompt = `Given the following entities and the text they were extracted from, identify the relationships between them. Use short upper-case relationship types such as WORKS_FOR, MANAGES, LOCATED_IN, PART_OF, RESPONSIBLE_FOR.

Entities: %s

Respond with JSON only, in this exact format:
{"relationships": [{"source": "...", "target": "...", "type": "...", "confidence": 0.9}]}

Text:
%s`

type entityExtractionResult struct {
	Entities []struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"entities"`
}

type relationshipExtractionResult struct {
	Relationships []struct {
		Source     string  `json:"source"`
		Target     string  `json:"target"`
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	} `json:"relationships"`
}

// Extractor turns document text into graph entities and relationships.
// When a language model is configured it drives extraction with JSON
// prompts; without one (or when the model output cannot be parsed) it
// falls back to a capitalized-phrase heuristic so ingestion still works
// offline.
type Extractor struct {
	client      llm.Client
	entityTypes []string
	logger      log.Logger
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithEntityTypes overrides the entity categories requested from the model
func WithEntityTypes(types []string) ExtractorOption {
	return func(e *Extractor) { e.entityTypes = types }
}

// WithExtractorLogger sets the logger used for fallback warnings
func WithExtractorLogger(logger log.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor creates an Extractor. client may be nil, in which case only
// the heuristic path is used.
func NewExtractor(client llm.Client, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client:      client,
		entityTypes: DefaultEntityTypes,
		logger:      log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract pulls entities and relationships out of a single document
func (e *Extractor) Extract(ctx context.Context, doc document.Document) ([]*Entity, []*Relationship, error) {
	entities, err := e.extractEntities(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	if len(entities) == 0 {
		return nil, nil, nil
	}

	// Entities inherit the source document's metadata as properties so
	// query-time filters (dataset scoping in particular) can match them.
	for _, entity := range entities {
		if len(doc.Metadata) == 0 {
			break
		}
		if entity.Properties == nil {
			entity.Properties = make(map[string]any, len(doc.Metadata))
		}
		for k, v := range doc.Metadata {
			if _, ok := entity.Properties[k]; !ok {
				entity.Properties[k] = v
			}
		}
	}

	relationships, err := e.extractRelationships(ctx, doc, entities)
	if err != nil {
		return nil, nil, err
	}
	return entities, relationships, nil
}

// IngestDocuments extracts every document and stores the results in graph
func (e *Extractor) IngestDocuments(ctx context.Context, graph Graph, docs []document.Document) error {
	for _, doc := range docs {
		entities, relationships, err := e.Extract(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to extract from document %s: %w", doc.ID, err)
		}
		for _, entity := range entities {
			if err := graph.AddEntity(ctx, entity); err != nil {
				return fmt.Errorf("failed to add entity %s: %w", entity.Name, err)
			}
		}
		for _, rel := range relationships {
			if err := graph.AddRelationship(ctx, rel); err != nil {
				return fmt.Errorf("failed to add relationship %s: %w", rel.ID, err)
			}
		}
	}
	return nil
}

func (e *Extractor) extractEntities(ctx context.Context, doc document.Document) ([]*Entity, error) {
	if e.client == nil {
		return e.heuristicEntities(doc), nil
	}

	prompt := fmt.Sprintf(entityExtractionPrompt, strings.Join(e.entityTypes, ", "), doc.Content)
	response, err := e.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("entity extraction failed: %w", err)
	}

	var result entityExtractionResult
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		e.logger.Warn("entity extraction returned unparseable output, using heuristic: %v", err)
		return e.heuristicEntities(doc), nil
	}

	entities := make([]*Entity, 0, len(result.Entities))
	for _, raw := range result.Entities {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}
		entities = append(entities, &Entity{
			ID:          EntityID(name),
			Name:        name,
			Type:        strings.ToUpper(strings.TrimSpace(raw.Type)),
			Description: raw.Description,
			SourceDocID: doc.ID,
		})
	}
	return entities, nil
}

func (e *Extractor) extractRelationships(ctx context.Context, doc document.Document, entities []*Entity) ([]*Relationship, error) {
	if e.client == nil {
		return e.heuristicRelationships(doc, entities), nil
	}

	names := make([]string, len(entities))
	for i, entity := range entities {
		names[i] = entity.Name
	}

	prompt := fmt.Sprintf(relationshipExtractionPrompt, strings.Join(names, ", "), doc.Content)
	response, err := e.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("relationship extraction failed: %w", err)
	}

	var result relationshipExtractionResult
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		e.logger.Warn("relationship extraction returned unparseable output, using heuristic: %v", err)
		return e.heuristicRelationships(doc, entities), nil
	}

	known := make(map[string]string, len(entities)) // lowercased name -> entity ID
	for _, entity := range entities {
		known[strings.ToLower(entity.Name)] = entity.ID
	}

	var rels []*Relationship
	for _, raw := range result.Relationships {
		source, ok := known[strings.ToLower(strings.TrimSpace(raw.Source))]
		if !ok {
			continue
		}
		target, ok := known[strings.ToLower(strings.TrimSpace(raw.Target))]
		if !ok || source == target {
			continue
		}
		relType := strings.ToUpper(strings.TrimSpace(raw.Type))
		if relType == "" {
			relType = "RELATED_TO"
		}
		weight := raw.Confidence
		if weight <= 0 {
			weight = 0.5
		}
		rels = append(rels, &Relationship{
			ID:     RelationshipID(source, relType, target),
			Source: source,
			Target: target,
			Type:   relType,
			Weight: weight,
		})
	}
	return rels, nil
}

// heuristicEntities treats consecutive capitalized words as entity names
func (e *Extractor) heuristicEntities(doc document.Document) []*Entity {
	seen := make(map[string]bool)
	var entities []*Entity
	for _, phrase := range capitalizedPhrases(doc.Content) {
		id := EntityID(phrase)
		if seen[id] {
			continue
		}
		seen[id] = true
		entities = append(entities, &Entity{
			ID:          id,
			Name:        phrase,
			Type:        "CONCEPT",
			SourceDocID: doc.ID,
		})
	}
	return entities
}

// heuristicRelationships links entity pairs that co-occur in the document
func (e *Extractor) heuristicRelationships(doc document.Document, entities []*Entity) []*Relationship {
	var rels []*Relationship
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			rels = append(rels, &Relationship{
				ID:     RelationshipID(entities[i].ID, "RELATED_TO", entities[j].ID),
				Source: entities[i].ID,
				Target: entities[j].ID,
				Type:   "RELATED_TO",
				Weight: 0.3,
			})
		}
	}
	return rels
}

// capitalizedPhrases returns runs of capitalized words longer than two characters
func capitalizedPhrases(text string) []string {
	words := strings.Fields(text)
	var phrases []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			phrase := strings.Join(current, " ")
			if len(phrase) > 2 {
				phrases = append(phrases, phrase)
			}
			current = nil
		}
	}

	for i, word := range words {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		runes := []rune(trimmed)
		if len(runes) > 0 && unicode.IsUpper(runes[0]) {
			// sentence-initial words are usually not entities on their own
			if i == 0 && len(current) == 0 && isCommonWord(trimmed) {
				continue
			}
			current = append(current, trimmed)
		} else {
			flush()
		}
		if strings.ContainsAny(word, ".!?") {
			flush()
		}
	}
	flush()
	return phrases
}

func isCommonWord(word string) bool {
	switch strings.ToLower(word) {
	case "the", "a", "an", "this", "that", "these", "those", "it", "in", "on", "at":
		return true
	}
	return false
}

// extractJSON strips code fences and surrounding prose from a model response
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	if idx := strings.Index(response, "```"); idx >= 0 {
		response = response[idx+3:]
		response = strings.TrimPrefix(response, "json")
		if end := strings.Index(response, "```"); end >= 0 {
			response = response[:end]
		}
	}
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}
	return response
}
