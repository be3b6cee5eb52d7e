package rbac

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "rbac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	user := &User{ID: uuid.NewString(), Email: "diana@alpha.example", Name: "Diana Reyes"}
	require.NoError(t, store.CreateUser(ctx, user))

	// duplicate email
	dup := &User{ID: uuid.NewString(), Email: "diana@alpha.example", Name: "Other"}
	assert.ErrorIs(t, store.CreateUser(ctx, dup), ErrAlreadyExists)

	got, err := store.GetUserByEmail(ctx, "diana@alpha.example")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_TenantAndRoles(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	tenant := &Tenant{ID: uuid.NewString(), Name: "Alpha Capital"}
	require.NoError(t, store.CreateTenant(ctx, tenant))
	assert.ErrorIs(t, store.CreateTenant(ctx, &Tenant{ID: uuid.NewString(), Name: "Alpha Capital"}), ErrAlreadyExists)

	role := &Role{ID: uuid.NewString(), TenantID: tenant.ID, Name: "analysts"}
	require.NoError(t, store.CreateRole(ctx, role))
	assert.ErrorIs(t, store.CreateRole(ctx, &Role{ID: uuid.NewString(), TenantID: tenant.ID, Name: "analysts"}), ErrAlreadyExists)

	got, err := store.GetRoleByName(ctx, tenant.ID, "analysts")
	require.NoError(t, err)
	assert.Equal(t, role.ID, got.ID)
}

func TestSQLiteStore_Associations(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	user := &User{ID: uuid.NewString(), Email: "marco@alpha.example", Name: "Marco"}
	require.NoError(t, store.CreateUser(ctx, user))
	tenant := &Tenant{ID: uuid.NewString(), Name: "Alpha Capital"}
	require.NoError(t, store.CreateTenant(ctx, tenant))
	role := &Role{ID: uuid.NewString(), TenantID: tenant.ID, Name: "analysts"}
	require.NoError(t, store.CreateRole(ctx, role))

	require.NoError(t, store.AddUserToTenant(ctx, user.ID, tenant.ID))
	require.NoError(t, store.AddUserToTenant(ctx, user.ID, tenant.ID)) // idempotent

	require.NoError(t, store.AddUserToRole(ctx, user.ID, role.ID))
	require.NoError(t, store.AddUserToRole(ctx, user.ID, role.ID))

	roles, err := store.UserRoles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "analysts", roles[0].Name)
}

func TestSQLiteStore_DatasetsAndGrants(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	owner := &User{ID: uuid.NewString(), Email: "diana@alpha.example", Name: "Diana"}
	require.NoError(t, store.CreateUser(ctx, owner))
	reader := &User{ID: uuid.NewString(), Email: "marco@alpha.example", Name: "Marco"}
	require.NoError(t, store.CreateUser(ctx, reader))

	dataset := &Dataset{ID: uuid.NewString(), Name: "ALPHA_DDQ", OwnerID: owner.ID}
	require.NoError(t, store.CreateDataset(ctx, dataset))
	assert.ErrorIs(t, store.CreateDataset(ctx, &Dataset{ID: uuid.NewString(), Name: "ALPHA_DDQ", OwnerID: owner.ID}), ErrAlreadyExists)

	grant := &Grant{
		ID:         uuid.NewString(),
		DatasetID:  dataset.ID,
		Principal:  UserPrincipal(reader.ID),
		Permission: PermissionRead,
		GrantedBy:  owner.ID,
	}
	require.NoError(t, store.CreateGrant(ctx, grant))

	// same principal+permission is a duplicate
	dupGrant := *grant
	dupGrant.ID = uuid.NewString()
	assert.ErrorIs(t, store.CreateGrant(ctx, &dupGrant), ErrAlreadyExists)

	grants, err := store.GrantsForDataset(ctx, dataset.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, PrincipalUser, grants[0].Principal.Type)
	assert.Equal(t, reader.ID, grants[0].Principal.ID)
	assert.Equal(t, PermissionRead, grants[0].Permission)
}
