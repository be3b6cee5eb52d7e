package access

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundlens/fundlens/document"
	"github.com/fundlens/fundlens/embed"
	"github.com/fundlens/fundlens/engine"
	"github.com/fundlens/fundlens/kg"
	"github.com/fundlens/fundlens/llm"
	"github.com/fundlens/fundlens/rbac"
	"github.com/fundlens/fundlens/vector"
)

type fixture struct {
	rbac    *rbac.Service
	catalog *Catalog
	guard   *Guard

	diana *rbac.User // owner of ALPHA_DDQ
	lena  *rbac.User // owner of BETA_DDQ
	marco *rbac.User // analyst with no grants yet
}

func newFixture(t *testing.T, guardOpts ...GuardOption) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := rbac.NewSQLiteStore(filepath.Join(t.TempDir(), "rbac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	svc := rbac.NewService(store)

	embedder := embed.NewHashEmbedder(256)
	eng := engine.NewVectorEngine(embedder, vector.NewMemoryStore(embedder),
		llm.NewStaticClient("The phishing incident was remediated with mandatory training."))

	f := &fixture{
		rbac:    svc,
		catalog: NewCatalog(svc, eng),
		guard:   NewGuard(svc, eng, guardOpts...),
	}

	f.diana, err = svc.CreateUser(ctx, "diana@alpha.example", "Diana Reyes")
	require.NoError(t, err)
	f.lena, err = svc.CreateUser(ctx, "lena@beta.example", "Lena Fischer")
	require.NoError(t, err)
	f.marco, err = svc.CreateUser(ctx, "marco@alpha.example", "Marco Silva")
	require.NoError(t, err)

	_, err = f.catalog.AddDocuments(ctx, f.diana.ID, "ALPHA_DDQ", []document.Document{
		{ID: "alpha_sec", Content: "The phishing incident remediation included mandatory security training."},
		{ID: "alpha_privacy", Content: "Diana Reyes oversees data privacy at Alpha Capital."},
	})
	require.NoError(t, err)

	_, err = f.catalog.AddDocuments(ctx, f.lena.ID, "BETA_DDQ", []document.Document{
		{ID: "beta_perf", Content: "Quarterly portfolio returns at Beta Fund exceeded all benchmarks."},
	})
	require.NoError(t, err)

	return f
}

func TestGuard_OwnerCanSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	results, err := f.guard.Search(ctx, f.diana.ID, []string{"ALPHA_DDQ"}, "What remediation followed the phishing incident?")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEqual(t, engine.NoAnswerFound, results[0].Answer)
	assert.Equal(t, "ALPHA_DDQ", results[0].Metadata[DatasetMetadataKey])
}

func TestGuard_UnauthorizedUserDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	results, err := f.guard.Search(ctx, f.marco.ID, []string{"ALPHA_DDQ"}, "phishing incident")
	assert.ErrorIs(t, err, rbac.ErrPermissionDenied)
	assert.Nil(t, results)
}

func TestGuard_GrantEnablesSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.rbac.Grant(ctx, f.diana.ID, mustDataset(t, f, "ALPHA_DDQ").ID,
		rbac.UserPrincipal(f.marco.ID), rbac.PermissionRead))

	results, err := f.guard.Search(ctx, f.marco.ID, []string{"ALPHA_DDQ"}, "phishing incident")
	require.NoError(t, err)
	require.Len(t, results, 1)

	// retrieval stays inside the granted dataset
	for _, src := range results[0].Sources {
		assert.Equal(t, "ALPHA_DDQ", src.Metadata[DatasetMetadataKey])
	}
}

func TestGuard_MixedScopeDeniedEntirely(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// diana owns ALPHA_DDQ but has no grant on BETA_DDQ
	results, err := f.guard.Search(ctx, f.diana.ID, []string{"ALPHA_DDQ", "BETA_DDQ"}, "anything")
	assert.ErrorIs(t, err, rbac.ErrPermissionDenied)
	assert.Nil(t, results)
}

func TestGuard_CrossTenantShare(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	beta := mustDataset(t, f, "BETA_DDQ")

	// lena shares her dataset across tenants
	require.NoError(t, f.rbac.Grant(ctx, f.lena.ID, beta.ID,
		rbac.UserPrincipal(f.diana.ID), rbac.PermissionRead))

	results, err := f.guard.Search(ctx, f.diana.ID, []string{"ALPHA_DDQ", "BETA_DDQ"}, "portfolio returns")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestGuard_EnforcementDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithEnforcement(false))

	results, err := f.guard.Search(ctx, f.marco.ID, []string{"ALPHA_DDQ"}, "phishing incident")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestGuard_UnknownDataset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.guard.Search(ctx, f.diana.ID, []string{"MISSING"}, "anything")
	assert.ErrorIs(t, err, rbac.ErrNotFound)
}

func TestGuard_EmptyScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.guard.Search(ctx, f.diana.ID, nil, "anything")
	assert.Error(t, err)
}

func TestGuard_GraphEngineScopesContext(t *testing.T) {
	ctx := context.Background()

	store, err := rbac.NewSQLiteStore(filepath.Join(t.TempDir(), "rbac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	svc := rbac.NewService(store)

	eng := engine.NewGraphEngine(kg.NewExtractor(nil), kg.NewMemoryGraph(),
		llm.NewStaticClient("Scoped graph answer."))
	catalog := NewCatalog(svc, eng)
	guard := NewGuard(svc, eng)

	diana, err := svc.CreateUser(ctx, "diana@alpha.example", "Diana Reyes")
	require.NoError(t, err)
	lena, err := svc.CreateUser(ctx, "lena@beta.example", "Lena Fischer")
	require.NoError(t, err)

	_, err = catalog.AddDocuments(ctx, diana.ID, "ALPHA_DDQ", []document.Document{
		{ID: "alpha_soc2", Content: "Alpha Capital remediated the Phishing Incident with training."},
	})
	require.NoError(t, err)
	_, err = catalog.AddDocuments(ctx, lena.ID, "BETA_DDQ", []document.Document{
		{ID: "beta_strategy", Content: "Beta Partners manages the Secret Strategy portfolio."},
	})
	require.NoError(t, err)

	// diana reads only ALPHA_DDQ; a question brushing both corpora must not
	// pull beta entities into her graph context
	results, err := guard.Search(ctx, diana.ID, []string{"ALPHA_DDQ"},
		"Tell me about the Phishing Incident. Any link to the Secret Strategy?")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Context, "Phishing Incident")
	assert.NotContains(t, results[0].Context, "Secret Strategy")
	assert.NotContains(t, results[0].Context, "Beta Partners")
}

func TestCatalog_ReingestKeepsOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	dataset, err := f.catalog.AddDocuments(ctx, f.marco.ID, "ALPHA_DDQ", []document.Document{
		{ID: "alpha_extra", Content: "Additional compliance notes."},
	})
	require.NoError(t, err)
	assert.Equal(t, f.diana.ID, dataset.OwnerID)
}

func mustDataset(t *testing.T, f *fixture, name string) *rbac.Dataset {
	t.Helper()
	dataset, err := f.rbac.GetDatasetByName(context.Background(), name)
	require.NoError(t, err)
	return dataset
}
