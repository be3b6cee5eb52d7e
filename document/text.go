package document

import (
	"context"
	"fmt"
	"maps"
	"os"
)

// TextLoader loads documents from plain text files
type TextLoader struct {
	filePath string
	metadata map[string]any
}

// TextLoaderOption configures the TextLoader
type TextLoaderOption func(*TextLoader)

// WithTextMetadata sets additional metadata for loaded documents
func WithTextMetadata(metadata map[string]any) TextLoaderOption {
	return func(l *TextLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewTextLoader creates a new TextLoader
func NewTextLoader(filePath string, opts ...TextLoaderOption) *TextLoader {
	l := &TextLoader{
		filePath: filePath,
		metadata: make(map[string]any),
	}

	l.metadata["source"] = filePath
	l.metadata["type"] = "text"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads the file as a single document
func (l *TextLoader) Load(ctx context.Context) ([]Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata loads the file and merges additional metadata
func (l *TextLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]Document, error) {
	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)

	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", l.filePath, err)
	}

	doc := Document{
		ID:       fmt.Sprintf("text_%s", l.filePath),
		Content:  string(content),
		Metadata: combined,
	}

	return []Document{doc}, nil
}
