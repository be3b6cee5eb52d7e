// Package llm wraps chat-completion models used for answer generation and
// entity extraction.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Client generates completions for a prompt
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// answerTemplate is the context-stuffing analyst prompt. The model is
// restricted to the retrieved context so answers stay grounded in the corpus.
const answerTemplate = `You are an analyst. Answer the user's question *only* using the context provided below.
If the context does not contain the answer, say so.

Context:
%s

Question:
%s

Answer:`

// AnswerPrompt renders the analyst prompt for a question over retrieved context
func AnswerPrompt(contextText, question string) string {
	return fmt.Sprintf(answerTemplate, strings.TrimSpace(contextText), strings.TrimSpace(question))
}
