// Package splitter breaks documents into fixed-size chunks for embedding.
package splitter

import (
	"github.com/fundlens/fundlens/document"
)

// Default chunking parameters for due-diligence corpora
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// TextSplitter splits text into chunks
type TextSplitter interface {
	// SplitText splits raw text into chunks
	SplitText(text string) []string

	// SplitDocuments splits documents into chunk documents, carrying over
	// metadata and annotating each chunk with its index and total
	SplitDocuments(docs []document.Document) []document.Document
}
