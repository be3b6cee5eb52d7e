package document

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLTableLoader renders a SQLite table as a single text document. Column
// values are laid out as an aligned grid so downstream chunking and entity
// extraction see the rows in a readable form.
type SQLTableLoader struct {
	dbPath    string
	tableName string
	metadata  map[string]any
}

// NewSQLTableLoader creates a new SQLTableLoader for the given database file and table
func NewSQLTableLoader(dbPath, tableName string) *SQLTableLoader {
	return &SQLTableLoader{
		dbPath:    dbPath,
		tableName: tableName,
		metadata: map[string]any{
			"source": dbPath,
			"table":  tableName,
			"type":   "sql_table",
		},
	}
}

// Load loads the table contents as one document
func (l *SQLTableLoader) Load(ctx context.Context) ([]Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata loads the table and merges additional metadata
func (l *SQLTableLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]Document, error) {
	if !validTableName(l.tableName) {
		return nil, fmt.Errorf("invalid table name: %q", l.tableName)
	}

	db, err := sql.Open("sqlite3", l.dbPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open database %s: %w", l.dbPath, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", l.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", l.tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records [][]string
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make([]string, len(columns))
		for i, v := range values {
			record[i] = formatValue(v)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)
	combined["row_count"] = len(records)

	doc := Document{
		ID:       fmt.Sprintf("sql_%s_%s", l.dbPath, l.tableName),
		Content:  renderTable(l.tableName, columns, records),
		Metadata: combined,
	}

	return []Document{doc}, nil
}

// renderTable renders column headers and rows as aligned text
func renderTable(tableName string, columns []string, records [][]string) string {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, record := range records {
		for i, cell := range record {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Database table %s:\n", tableName))

	for i, col := range columns {
		sb.WriteString(pad(col, widths[i]))
		if i < len(columns)-1 {
			sb.WriteString("  ")
		}
	}
	sb.WriteString("\n")

	for _, record := range records {
		for i, cell := range record {
			sb.WriteString(pad(cell, widths[i]))
			if i < len(record)-1 {
				sb.WriteString("  ")
			}
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// validTableName rejects identifiers that could escape the query context.
// database/sql placeholders cannot be used for table names.
func validTableName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
