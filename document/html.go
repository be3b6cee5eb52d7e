package document

import (
	"context"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// HTMLLoader extracts readable text from an HTML file. Markup is sanitized
// with bluemonday before parsing so script payloads never reach the corpus.
type HTMLLoader struct {
	filePath string
	metadata map[string]any
	policy   *bluemonday.Policy
}

// HTMLLoaderOption configures the HTMLLoader
type HTMLLoaderOption func(*HTMLLoader)

// WithHTMLMetadata sets additional metadata for loaded documents
func WithHTMLMetadata(metadata map[string]any) HTMLLoaderOption {
	return func(l *HTMLLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// WithSanitizePolicy overrides the default bluemonday policy
func WithSanitizePolicy(policy *bluemonday.Policy) HTMLLoaderOption {
	return func(l *HTMLLoader) {
		l.policy = policy
	}
}

// NewHTMLLoader creates a new HTMLLoader
func NewHTMLLoader(filePath string, opts ...HTMLLoaderOption) *HTMLLoader {
	l := &HTMLLoader{
		filePath: filePath,
		metadata: make(map[string]any),
		policy:   bluemonday.UGCPolicy(),
	}

	l.metadata["source"] = filePath
	l.metadata["type"] = "html"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads the HTML file as a single text document
func (l *HTMLLoader) Load(ctx context.Context) ([]Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata loads the HTML file and merges additional metadata
func (l *HTMLLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]Document, error) {
	raw, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read html %s: %w", l.filePath, err)
	}

	// The title tag is read from the raw markup: sanitization drops head-level
	// tags, keeping only their text.
	rawDoc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html %s: %w", l.filePath, err)
	}
	title := strings.TrimSpace(rawDoc.Find("title").First().Text())

	rawDoc.Find("head").Remove()
	body, err := rawDoc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("failed to extract body from %s: %w", l.filePath, err)
	}

	sanitized := l.policy.Sanitize(body)
	qdoc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitized))
	if err != nil {
		return nil, fmt.Errorf("failed to parse sanitized html %s: %w", l.filePath, err)
	}

	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)

	if title != "" {
		combined["title"] = title
	}

	var paragraphs []string
	qdoc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		for _, line := range strings.Split(sel.Text(), "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				paragraphs = append(paragraphs, trimmed)
			}
		}
	})

	doc := Document{
		ID:       fmt.Sprintf("html_%s", l.filePath),
		Content:  strings.Join(paragraphs, "\n"),
		Metadata: combined,
	}

	return []Document{doc}, nil
}
