// FundLens - Due-Diligence Document QA with Vector and Graph Retrieval
//
// FundLens answers questions over due-diligence documents (questionnaires,
// PDFs, database tables) using two interchangeable retrieval strategies, and
// layers multi-tenant role-based access control over the resulting datasets.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/fundlens/fundlens
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/fundlens/fundlens/embed"
//		"github.com/fundlens/fundlens/engine"
//		"github.com/fundlens/fundlens/llm"
//		"github.com/fundlens/fundlens/vector"
//		"github.com/fundlens/fundlens/document"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		embedder := embed.NewHashEmbedder(256)
//		client := llm.NewStaticClient("Mandatory security training.")
//		eng := engine.NewVectorEngine(embedder, vector.NewMemoryStore(embedder), client)
//
//		eng.Ingest(ctx, []document.Document{
//			{ID: "ddq", Content: "The phishing incident was remediated with training."},
//		})
//
//		result, _ := eng.Query(ctx, "What remediation followed the incident?")
//		fmt.Println(result.Answer)
//	}
//
// # Packages
//
//   - document: Document type and loaders (PDF, text, SQL tables, HTML)
//   - splitter: fixed-size chunking with overlap, langchaingo adapter
//   - embed: OpenAI embeddings and a deterministic offline embedder
//   - llm: answer generation clients (OpenAI, static)
//   - vector: similarity stores (memory, SQLite, Redis, Postgres)
//   - kg: knowledge graph, entity/relationship extraction
//   - engine: the two retrieval engines (vector search, graph traversal)
//   - rbac: users, tenants, roles, datasets, grants, enforcement
//   - access: dataset catalog and permission-checked query guard
//   - report: markdown/HTML rendering of query results
//
// # Environment Variables
//
//   - LLM_API_KEY: OpenAI API key; unset means offline mode
//   - FUNDLENS_ACCESS_CONTROL: enable query-time permission enforcement
//   - FUNDLENS_DATA_DIR: directory with sample documents and databases
//
// See the examples directory for runnable demos, including the multi-tenant
// RBAC playbook and the terminal dashboard.
package fundlens // import "github.com/fundlens/fundlens"
