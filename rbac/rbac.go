// Package rbac implements multi-tenant role-based access control over
// datasets. Users belong to tenants and hold roles; datasets have owners;
// read and share permissions are granted to users or roles. The Service
// enforces grant authority and answers permission checks at query time.
package rbac

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("rbac: not found")

	// ErrAlreadyExists is returned by create operations on conflict. Callers
	// performing create-if-absent treat it as success.
	ErrAlreadyExists = errors.New("rbac: already exists")

	// ErrPermissionDenied is returned when a user lacks the permission an
	// operation requires
	ErrPermissionDenied = errors.New("rbac: permission denied")
)

// Permission is an action a principal may perform on a dataset
type Permission string

const (
	// PermissionRead allows querying a dataset
	PermissionRead Permission = "read"

	// PermissionShare allows granting permissions on a dataset to others
	PermissionShare Permission = "share"
)

// PrincipalType distinguishes grant subjects
type PrincipalType string

const (
	PrincipalUser PrincipalType = "user"
	PrincipalRole PrincipalType = "role"
)

// Principal identifies the subject of a grant
type Principal struct {
	Type PrincipalType `json:"type"`
	ID   string        `json:"id"`
}

// UserPrincipal is shorthand for a user-typed principal
func UserPrincipal(userID string) Principal {
	return Principal{Type: PrincipalUser, ID: userID}
}

// RolePrincipal is shorthand for a role-typed principal
func RolePrincipal(roleID string) Principal {
	return Principal{Type: PrincipalRole, ID: roleID}
}

// User is an authenticated identity
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Tenant is an organization boundary grouping users and roles
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is a named permission group within a tenant
type Role struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Dataset is a registered document collection with a single owner
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Grant gives a principal a permission on a dataset
type Grant struct {
	ID         string     `json:"id"`
	DatasetID  string     `json:"dataset_id"`
	Principal  Principal  `json:"principal"`
	Permission Permission `json:"permission"`
	GrantedBy  string     `json:"granted_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Store persists RBAC records. Create operations return ErrAlreadyExists on
// conflict; lookups return ErrNotFound.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenantByName(ctx context.Context, name string) (*Tenant, error)

	CreateRole(ctx context.Context, role *Role) error
	GetRoleByName(ctx context.Context, tenantID, name string) (*Role, error)

	AddUserToTenant(ctx context.Context, userID, tenantID string) error
	AddUserToRole(ctx context.Context, userID, roleID string) error
	UserRoles(ctx context.Context, userID string) ([]*Role, error)

	CreateDataset(ctx context.Context, dataset *Dataset) error
	GetDataset(ctx context.Context, id string) (*Dataset, error)
	GetDatasetByName(ctx context.Context, name string) (*Dataset, error)

	CreateGrant(ctx context.Context, grant *Grant) error
	GrantsForDataset(ctx context.Context, datasetID string) ([]*Grant, error)

	Close() error
}
