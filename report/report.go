// Package report renders query results as markdown and HTML for sharing
// outside the terminal.
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/fundlens/fundlens/engine"
)

// Markdown renders results as a markdown report
func Markdown(title string, results []*engine.QueryResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	for i, result := range results {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "## Q: %s\n\n", result.Query)
		fmt.Fprintf(&b, "%s\n\n", result.Answer)
		fmt.Fprintf(&b, "- Confidence: %.2f\n", result.Confidence)
		fmt.Fprintf(&b, "- Response time: %s\n", result.ResponseTime.Round(time.Millisecond))

		if dataset, ok := result.Metadata["dataset"]; ok {
			fmt.Fprintf(&b, "- Dataset: %v\n", dataset)
		}
		if eng, ok := result.Metadata["engine"]; ok {
			fmt.Fprintf(&b, "- Engine: %v\n", eng)
		}

		if len(result.Sources) > 0 {
			b.WriteString("\n### Sources\n\n")
			for j, src := range result.Sources {
				fmt.Fprintf(&b, "%d. `%s` - %s\n", j+1, src.ID, excerpt(src.Content, 120))
			}
		}
	}
	return b.String()
}

// HTML renders results as a standalone HTML document
func HTML(title string, results []*engine.QueryResult) []byte {
	md := Markdown(title, results)

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

// WriteHTMLFile writes an HTML report to path
func WriteHTMLFile(path, title string, results []*engine.QueryResult) error {
	if err := os.WriteFile(path, HTML(title, results), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// excerpt truncates to limit runes so multi-byte content stays valid UTF-8
func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
