package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore persists RBAC records in SQLite
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and initializes) an RBAC database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rbac database: %w", err)
	}
	// associations rely on foreign keys being enforced
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(tenant_id, name)
	);

	CREATE TABLE IF NOT EXISTS user_tenants (
		user_id TEXT NOT NULL REFERENCES users(id),
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		PRIMARY KEY (user_id, tenant_id)
	);

	CREATE TABLE IF NOT EXISTS user_roles (
		user_id TEXT NOT NULL REFERENCES users(id),
		role_id TEXT NOT NULL REFERENCES roles(id),
		PRIMARY KEY (user_id, role_id)
	);

	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		owner_id TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS grants (
		id TEXT PRIMARY KEY,
		dataset_id TEXT NOT NULL REFERENCES datasets(id),
		principal_type TEXT NOT NULL,
		principal_id TEXT NOT NULL,
		permission TEXT NOT NULL,
		granted_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(dataset_id, principal_type, principal_id, permission)
	);
	CREATE INDEX IF NOT EXISTS idx_grants_dataset ON grants(dataset_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create rbac schema: %w", err)
	}
	return nil
}

// CreateUser inserts a user; ErrAlreadyExists if the email is taken
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.CreatedAt)
	return wrapConstraint(err, "user")
}

// GetUser retrieves a user by ID
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, name, created_at FROM users WHERE id = ?", id))
}

// GetUserByEmail retrieves a user by email
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, name, created_at FROM users WHERE email = ?", email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// CreateTenant inserts a tenant; ErrAlreadyExists if the name is taken
func (s *SQLiteStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tenants (id, name, created_at) VALUES (?, ?, ?)",
		tenant.ID, tenant.Name, tenant.CreatedAt)
	return wrapConstraint(err, "tenant")
}

// GetTenantByName retrieves a tenant by name
func (s *SQLiteStore) GetTenantByName(ctx context.Context, name string) (*Tenant, error) {
	var tenant Tenant
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM tenants WHERE name = ?", name).
		Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	return &tenant, nil
}

// CreateRole inserts a role; ErrAlreadyExists if the name is taken in the tenant
func (s *SQLiteStore) CreateRole(ctx context.Context, role *Role) error {
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO roles (id, tenant_id, name, created_at) VALUES (?, ?, ?, ?)",
		role.ID, role.TenantID, role.Name, role.CreatedAt)
	return wrapConstraint(err, "role")
}

// GetRoleByName retrieves a role by tenant and name
func (s *SQLiteStore) GetRoleByName(ctx context.Context, tenantID, name string) (*Role, error) {
	var role Role
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, name, created_at FROM roles WHERE tenant_id = ? AND name = ?",
		tenantID, name).
		Scan(&role.ID, &role.TenantID, &role.Name, &role.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}
	return &role, nil
}

// AddUserToTenant associates a user with a tenant; adding twice is a no-op
func (s *SQLiteStore) AddUserToTenant(ctx context.Context, userID, tenantID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_tenants (user_id, tenant_id) VALUES (?, ?)",
		userID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to add user to tenant: %w", err)
	}
	return nil
}

// AddUserToRole associates a user with a role; adding twice is a no-op
func (s *SQLiteStore) AddUserToRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)",
		userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to add user to role: %w", err)
	}
	return nil
}

// UserRoles lists the roles a user holds
func (s *SQLiteStore) UserRoles(ctx context.Context, userID string) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.tenant_id, r.name, r.created_at
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.TenantID, &role.Name, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

// CreateDataset inserts a dataset; ErrAlreadyExists if the name is taken
func (s *SQLiteStore) CreateDataset(ctx context.Context, dataset *Dataset) error {
	if dataset.CreatedAt.IsZero() {
		dataset.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO datasets (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)",
		dataset.ID, dataset.Name, dataset.OwnerID, dataset.CreatedAt)
	return wrapConstraint(err, "dataset")
}

// GetDataset retrieves a dataset by ID
func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	return s.scanDataset(s.db.QueryRowContext(ctx,
		"SELECT id, name, owner_id, created_at FROM datasets WHERE id = ?", id))
}

// GetDatasetByName retrieves a dataset by name
func (s *SQLiteStore) GetDatasetByName(ctx context.Context, name string) (*Dataset, error) {
	return s.scanDataset(s.db.QueryRowContext(ctx,
		"SELECT id, name, owner_id, created_at FROM datasets WHERE name = ?", name))
}

func (s *SQLiteStore) scanDataset(row *sql.Row) (*Dataset, error) {
	var dataset Dataset
	err := row.Scan(&dataset.ID, &dataset.Name, &dataset.OwnerID, &dataset.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset: %w", err)
	}
	return &dataset, nil
}

// CreateGrant inserts a grant; ErrAlreadyExists for a duplicate grant
func (s *SQLiteStore) CreateGrant(ctx context.Context, grant *Grant) error {
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grants (id, dataset_id, principal_type, principal_id, permission, granted_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, grant.ID, grant.DatasetID, string(grant.Principal.Type), grant.Principal.ID,
		string(grant.Permission), grant.GrantedBy, grant.CreatedAt)
	return wrapConstraint(err, "grant")
}

// GrantsForDataset lists all grants on a dataset
func (s *SQLiteStore) GrantsForDataset(ctx context.Context, datasetID string) ([]*Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dataset_id, principal_type, principal_id, permission, granted_by, created_at
		FROM grants WHERE dataset_id = ?
	`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []*Grant
	for rows.Next() {
		var grant Grant
		var ptype, perm string
		if err := rows.Scan(&grant.ID, &grant.DatasetID, &ptype, &grant.Principal.ID,
			&perm, &grant.GrantedBy, &grant.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grant.Principal.Type = PrincipalType(ptype)
		grant.Permission = Permission(perm)
		grants = append(grants, &grant)
	}
	return grants, rows.Err()
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error { return s.db.Close() }

// wrapConstraint maps unique-constraint violations to ErrAlreadyExists
func wrapConstraint(err error, kind string) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w", kind, ErrAlreadyExists)
	}
	return fmt.Errorf("failed to insert %s: %w", kind, err)
}
