package document

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Alpha Fund SOC 2 summary.\n"), 0o644))

	loader := NewTextLoader(path, WithTextMetadata(map[string]any{"dataset": "ALPHA_DDQ"}))
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Alpha Fund SOC 2 summary.\n", docs[0].Content)
	assert.Equal(t, path, docs[0].Metadata["source"])
	assert.Equal(t, "text", docs[0].Metadata["type"])
	assert.Equal(t, "ALPHA_DDQ", docs[0].Metadata["dataset"])
}

func TestTextLoader_MissingFile(t *testing.T) {
	loader := NewTextLoader(filepath.Join(t.TempDir(), "missing.txt"))
	_, err := loader.Load(context.Background())
	assert.Error(t, err)
}

func TestSQLTableLoader(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "fund.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE fund_managers (name TEXT, title TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO fund_managers VALUES ('Diana Reyes', 'Chief Privacy Officer'), ('Mark Olsen', 'CTO')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	loader := NewSQLTableLoader(dbPath, "fund_managers")
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Contains(t, docs[0].Content, "Database table fund_managers:")
	assert.Contains(t, docs[0].Content, "Diana Reyes")
	assert.Contains(t, docs[0].Content, "Chief Privacy Officer")
	assert.Equal(t, 2, docs[0].Metadata["row_count"])
	assert.Equal(t, "sql_table", docs[0].Metadata["type"])
}

func TestSQLTableLoader_InvalidTableName(t *testing.T) {
	loader := NewSQLTableLoader(":memory:", "managers; DROP TABLE users")
	_, err := loader.Load(context.Background())
	assert.Error(t, err)
}

func TestHTMLLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.html")
	html := `<html><head><title>SOC 2 Summary</title></head>
<body><h1>Q2 Phishing Incident</h1>
<p>Remediation included mandatory security training.</p>
<script>alert("nope")</script>
</body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	loader := NewHTMLLoader(path)
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Contains(t, docs[0].Content, "Q2 Phishing Incident")
	assert.Contains(t, docs[0].Content, "mandatory security training")
	assert.NotContains(t, docs[0].Content, "alert")
	assert.Equal(t, "SOC 2 Summary", docs[0].Metadata["title"])
}

func TestMetadataMatches(t *testing.T) {
	meta := map[string]any{"dataset": "ALPHA_DDQ", "chunk_index": float64(2)}

	assert.True(t, MetadataMatches(meta, nil))
	assert.True(t, MetadataMatches(meta, map[string]any{"dataset": "ALPHA_DDQ"}))
	// ints match their float64 JSON round-trip
	assert.True(t, MetadataMatches(meta, map[string]any{"chunk_index": 2}))
	assert.False(t, MetadataMatches(meta, map[string]any{"chunk_index": 3}))
	assert.False(t, MetadataMatches(meta, map[string]any{"dataset": "BETA_DDQ"}))
	assert.False(t, MetadataMatches(meta, map[string]any{"missing": "x"}))
}

func TestValidTableName(t *testing.T) {
	assert.True(t, validTableName("fund_managers"))
	assert.True(t, validTableName("t1"))
	assert.False(t, validTableName(""))
	assert.False(t, validTableName("a b"))
	assert.False(t, validTableName("a;--"))
}
