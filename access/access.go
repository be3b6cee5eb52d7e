// Package access ties retrieval engines to RBAC. The Catalog registers named
// datasets and ingests their documents; the Guard answers queries only over
// datasets the requesting user may read.
package access

import (
	"context"
	"fmt"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/engine"
	"github.com/fundlens/fundlens/log"
	"github.com/fundlens/fundlens/rbac"
)

// DatasetMetadataKey is the metadata field linking documents to their dataset
const DatasetMetadataKey = "dataset"

// Catalog registers datasets and ingests documents into a retrieval engine.
// Every ingested document is tagged with its dataset name so the Guard can
// scope retrieval later.
type Catalog struct {
	rbac   *rbac.Service
	engine engine.Engine
	logger log.Logger
}

// NewCatalog creates a Catalog over the given RBAC service and engine
func NewCatalog(svc *rbac.Service, eng engine.Engine, opts ...CatalogOption) *Catalog {
	c := &Catalog{rbac: svc, engine: eng, logger: log.GetDefaultLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CatalogOption configures a Catalog
type CatalogOption func(*Catalog)

// WithCatalogLogger sets the catalog logger
func WithCatalogLogger(logger log.Logger) CatalogOption {
	return func(c *Catalog) { c.logger = logger }
}

// AddDocuments registers the dataset under ownerID if needed, tags the
// documents with the dataset name and ingests them. Re-adding to an existing
// dataset appends documents; ownership is not transferred.
func (c *Catalog) AddDocuments(ctx context.Context, ownerID, datasetName string, docs []document.Document) (*rbac.Dataset, error) {
	dataset, err := c.rbac.RegisterDataset(ctx, datasetName, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to register dataset %s: %w", datasetName, err)
	}

	tagged := make([]document.Document, len(docs))
	for i, doc := range docs {
		copied := doc
		copied.Metadata = make(map[string]any, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			copied.Metadata[k] = v
		}
		copied.Metadata[DatasetMetadataKey] = datasetName
		copied.Metadata["dataset_id"] = dataset.ID
		tagged[i] = copied
	}

	if err := c.engine.Ingest(ctx, tagged); err != nil {
		return nil, fmt.Errorf("failed to ingest dataset %s: %w", datasetName, err)
	}
	c.logger.Info("ingested %d documents into dataset %s", len(docs), datasetName)
	return dataset, nil
}

// Guard enforces dataset read permissions at query time. When enforcement is
// disabled every query is allowed through.
type Guard struct {
	rbac    *rbac.Service
	engine  engine.Engine
	enforce bool
	logger  log.Logger
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithEnforcement toggles permission checks. Defaults to enabled.
func WithEnforcement(enabled bool) GuardOption {
	return func(g *Guard) { g.enforce = enabled }
}

// WithGuardLogger sets the guard logger
func WithGuardLogger(logger log.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard creates a Guard over the given RBAC service and engine
func NewGuard(svc *rbac.Service, eng engine.Engine, opts ...GuardOption) *Guard {
	g := &Guard{rbac: svc, engine: eng, enforce: true, logger: log.GetDefaultLogger()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Search answers a question over the named datasets. Every dataset in the
// scope is permission-checked before any retrieval happens: a single denied
// dataset fails the whole query with rbac.ErrPermissionDenied, so a caller
// never sees partial results for a scope it cannot fully read.
func (g *Guard) Search(ctx context.Context, userID string, datasetNames []string, question string) ([]*engine.QueryResult, error) {
	if len(datasetNames) == 0 {
		return nil, fmt.Errorf("no datasets in query scope")
	}

	datasets := make([]*rbac.Dataset, 0, len(datasetNames))
	for _, name := range datasetNames {
		dataset, err := g.rbac.GetDatasetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		datasets = append(datasets, dataset)
	}

	if g.enforce {
		for _, dataset := range datasets {
			if err := g.rbac.RequireRead(ctx, userID, dataset.ID); err != nil {
				g.logger.Warn("user %s denied read on dataset %s", userID, dataset.Name)
				return nil, err
			}
		}
	}

	results := make([]*engine.QueryResult, 0, len(datasets))
	for _, dataset := range datasets {
		result, err := g.engine.Query(ctx, question,
			engine.WithFilter(map[string]any{DatasetMetadataKey: dataset.Name}))
		if err != nil {
			return nil, fmt.Errorf("query on dataset %s failed: %w", dataset.Name, err)
		}
		if result.Metadata == nil {
			result.Metadata = make(map[string]any)
		}
		result.Metadata[DatasetMetadataKey] = dataset.Name
		results = append(results, result)
	}
	return results, nil
}
