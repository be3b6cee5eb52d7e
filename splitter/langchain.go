package splitter

import (
	"fmt"
	"maps"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/fundlens/fundlens/document"
)

// LangChainSplitter adapts a langchaingo textsplitter.TextSplitter to the
// TextSplitter interface, for callers who want recursive or token-aware
// splitting instead of the fixed-size default.
type LangChainSplitter struct {
	splitter textsplitter.TextSplitter
}

var _ TextSplitter = (*LangChainSplitter)(nil)

// NewLangChainSplitter wraps a langchaingo text splitter
func NewLangChainSplitter(s textsplitter.TextSplitter) *LangChainSplitter {
	return &LangChainSplitter{splitter: s}
}

// NewRecursiveSplitter builds a langchaingo recursive character splitter with
// the given chunk size and overlap
func NewRecursiveSplitter(chunkSize, chunkOverlap int) *LangChainSplitter {
	return &LangChainSplitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

// SplitText splits raw text into chunks
func (l *LangChainSplitter) SplitText(text string) []string {
	chunks, err := l.splitter.SplitText(text)
	if err != nil {
		// langchaingo splitters only fail on invalid configuration; fall back
		// to the unsplit text rather than dropping content
		return []string{text}
	}
	return chunks
}

// SplitDocuments splits documents into chunk documents
func (l *LangChainSplitter) SplitDocuments(docs []document.Document) []document.Document {
	var result []document.Document

	for _, doc := range docs {
		chunks := l.SplitText(doc.Content)
		for i, chunk := range chunks {
			chunkDoc := document.Document{
				ID:        fmt.Sprintf("%s_chunk_%d", doc.ID, i),
				Content:   chunk,
				Metadata:  make(map[string]any),
				CreatedAt: doc.CreatedAt,
				UpdatedAt: doc.UpdatedAt,
			}

			maps.Copy(chunkDoc.Metadata, doc.Metadata)
			chunkDoc.Metadata["parent_id"] = doc.ID
			chunkDoc.Metadata["chunk_index"] = i
			chunkDoc.Metadata["chunk_total"] = len(chunks)

			result = append(result, chunkDoc)
		}
	}

	return result
}
