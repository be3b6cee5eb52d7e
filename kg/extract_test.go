package kg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/llm"
)

const ddqText = "Diana Reyes oversees data privacy at Alpha Capital."

func TestExtractor_LLMExtraction(t *testing.T) {
	client := llm.NewStaticClient(
		`{"entities": [
			{"name": "Diana Reyes", "type": "person", "description": "Privacy lead"},
			{"name": "Alpha Capital", "type": "organization", "description": "Fund manager"}
		]}`,
		`{"relationships": [
			{"source": "Diana Reyes", "target": "Alpha Capital", "type": "works_for", "confidence": 0.9},
			{"source": "Diana Reyes", "target": "Unknown Org", "type": "ADVISES", "confidence": 0.5}
		]}`,
	)

	extractor := NewExtractor(client)
	entities, rels, err := extractor.Extract(context.Background(), document.Document{ID: "doc1", Content: ddqText})
	require.NoError(t, err)

	require.Len(t, entities, 2)
	assert.Equal(t, "diana_reyes", entities[0].ID)
	assert.Equal(t, "PERSON", entities[0].Type)
	assert.Equal(t, "doc1", entities[0].SourceDocID)

	// the relationship to an unknown entity is dropped
	require.Len(t, rels, 1)
	assert.Equal(t, "diana_reyes", rels[0].Source)
	assert.Equal(t, "alpha_capital", rels[0].Target)
	assert.Equal(t, "WORKS_FOR", rels[0].Type)
	assert.InDelta(t, 0.9, rels[0].Weight, 1e-9)
}

func TestExtractor_FallsBackOnBadJSON(t *testing.T) {
	client := llm.NewStaticClient("I could not find any entities, sorry.")

	extractor := NewExtractor(client)
	entities, _, err := extractor.Extract(context.Background(), document.Document{ID: "doc1", Content: ddqText})
	require.NoError(t, err)

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	assert.Contains(t, names, "Diana Reyes")
	assert.Contains(t, names, "Alpha Capital")
}

func TestExtractor_HeuristicWithoutClient(t *testing.T) {
	extractor := NewExtractor(nil)
	entities, rels, err := extractor.Extract(context.Background(), document.Document{ID: "doc1", Content: ddqText})
	require.NoError(t, err)

	require.Len(t, entities, 2)
	assert.Equal(t, "Diana Reyes", entities[0].Name)
	assert.Equal(t, "Alpha Capital", entities[1].Name)

	require.Len(t, rels, 1)
	assert.Equal(t, "RELATED_TO", rels[0].Type)
}

func TestExtractor_EntitiesInheritDocumentMetadata(t *testing.T) {
	extractor := NewExtractor(nil)
	entities, _, err := extractor.Extract(context.Background(), document.Document{
		ID:       "doc1",
		Content:  ddqText,
		Metadata: map[string]any{"dataset": "ALPHA_DDQ", "source": "alpha_ddq.pdf"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, entities)

	for _, entity := range entities {
		assert.Equal(t, "ALPHA_DDQ", entity.Properties["dataset"])
		assert.Equal(t, "alpha_ddq.pdf", entity.Properties["source"])
	}
}

func TestExtractor_IngestDocuments(t *testing.T) {
	ctx := context.Background()
	graph := NewMemoryGraph()
	extractor := NewExtractor(nil)

	docs := []document.Document{
		{ID: "doc1", Content: ddqText},
		{ID: "doc2", Content: "Alpha Capital remediated the Phishing Incident with training."},
	}
	require.NoError(t, extractor.IngestDocuments(ctx, graph, docs))

	stats, err := graph.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.EntityCount)

	hood, err := graph.Neighbors(ctx, "alpha_capital", 1)
	require.NoError(t, err)
	assert.Len(t, hood.Entities, 3)
}

func TestCapitalizedPhrases(t *testing.T) {
	phrases := capitalizedPhrases("The quick fox met Diana Reyes near Alpha Capital. Nothing else happened.")
	assert.Contains(t, phrases, "Diana Reyes")
	assert.Contains(t, phrases, "Alpha Capital")
	assert.NotContains(t, phrases, "The")
}

func TestExtractJSON(t *testing.T) {
	fenced := "Here you go:\n```json\n{\"entities\": []}\n```"
	assert.JSONEq(t, `{"entities": []}`, extractJSON(fenced))

	prose := `Sure! {"relationships": []} Hope that helps.`
	assert.JSONEq(t, `{"relationships": []}`, extractJSON(prose))
}
