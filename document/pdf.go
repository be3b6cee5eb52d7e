package document

import (
	"context"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
)

// PDFLoader extracts text from a PDF file, one document per page.
// Extraction is delegated to langchaingo's PDF document loader.
type PDFLoader struct {
	filePath string
	metadata map[string]any
	joined   bool
}

// PDFLoaderOption configures the PDFLoader
type PDFLoaderOption func(*PDFLoader)

// WithPDFMetadata sets additional metadata for loaded documents
func WithPDFMetadata(metadata map[string]any) PDFLoaderOption {
	return func(l *PDFLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// WithJoinedPages collapses all pages into a single document
func WithJoinedPages() PDFLoaderOption {
	return func(l *PDFLoader) {
		l.joined = true
	}
}

// NewPDFLoader creates a new PDFLoader
func NewPDFLoader(filePath string, opts ...PDFLoaderOption) *PDFLoader {
	l := &PDFLoader{
		filePath: filePath,
		metadata: make(map[string]any),
	}

	l.metadata["source"] = filePath
	l.metadata["type"] = "pdf"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads the PDF pages as documents
func (l *PDFLoader) Load(ctx context.Context) ([]Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata loads the PDF and merges additional metadata into each page
func (l *PDFLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]Document, error) {
	f, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", l.filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf %s: %w", l.filePath, err)
	}

	pages, err := documentloaders.NewPDF(f, info.Size()).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", l.filePath, err)
	}

	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)

	if l.joined {
		var sb strings.Builder
		for _, page := range pages {
			sb.WriteString(page.PageContent)
			sb.WriteString("\n")
		}
		doc := Document{
			ID:       fmt.Sprintf("pdf_%s", l.filePath),
			Content:  strings.TrimSpace(sb.String()),
			Metadata: combined,
		}
		return []Document{doc}, nil
	}

	docs := make([]Document, 0, len(pages))
	for i, page := range pages {
		pageMeta := make(map[string]any)
		maps.Copy(pageMeta, combined)
		maps.Copy(pageMeta, page.Metadata)

		docs = append(docs, Document{
			ID:       fmt.Sprintf("pdf_%s_page_%d", l.filePath, i+1),
			Content:  page.PageContent,
			Metadata: pageMeta,
		})
	}

	return docs, nil
}
