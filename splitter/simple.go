package splitter

import (
	"fmt"
	"maps"
	"strings"

	"github.com/fundlens/fundlens/document"
)

// SimpleTextSplitter splits text into fixed-size chunks with overlap.
// When a separator is set, chunk boundaries are pulled back to the last
// separator inside the window so chunks end on natural breaks.
type SimpleTextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

var _ TextSplitter = (*SimpleTextSplitter)(nil)

// NewSimpleTextSplitter creates a new SimpleTextSplitter
func NewSimpleTextSplitter(chunkSize, chunkOverlap int) *SimpleTextSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	return &SimpleTextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// SplitText splits text into chunks. Sizes count runes, not bytes, so
// multi-byte characters are never cut in half.
func (s *SimpleTextSplitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		// Prefer breaking at a separator inside the window
		if s.Separator != "" && end < len(runes) {
			window := string(runes[start:end])
			if lastSep := strings.LastIndex(window, s.Separator); lastSep > 0 {
				end = start + len([]rune(window[:lastSep])) + len([]rune(s.Separator))
			}
		}

		chunks = append(chunks, string(runes[start:end]))

		if end == len(runes) {
			break
		}

		nextStart := end - s.ChunkOverlap
		if nextStart <= start {
			// Overlap would stall on a short chunk; move past it instead
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// SplitDocuments splits documents into chunk documents
func (s *SimpleTextSplitter) SplitDocuments(docs []document.Document) []document.Document {
	var result []document.Document

	for _, doc := range docs {
		chunks := s.SplitText(doc.Content)
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
