package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fundlens/fundlens/log"
)

// Service is the administrative and enforcement API over a Store. Create
// operations are idempotent: creating a record that already exists returns
// the existing record rather than an error.
type Service struct {
	store  Store
	logger log.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger
func WithServiceLogger(logger log.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service backed by store
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: log.GetDefaultLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser creates a user, or returns the existing user with that email
func (s *Service) CreateUser(ctx context.Context, email, name string) (*User, error) {
	user := &User{ID: uuid.NewString(), Email: email, Name: name}
	err := s.store.CreateUser(ctx, user)
	if errors.Is(err, ErrAlreadyExists) {
		return s.store.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug("created user %s (%s)", email, user.ID)
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

// CreateTenant creates a tenant, or returns the existing tenant with that name
func (s *Service) CreateTenant(ctx context.Context, name string) (*Tenant, error) {
	tenant := &Tenant{ID: uuid.NewString(), Name: name}
	err := s.store.CreateTenant(ctx, tenant)
	if errors.Is(err, ErrAlreadyExists) {
		return s.store.GetTenantByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug("created tenant %s (%s)", name, tenant.ID)
	return tenant, nil
}

// CreateRole creates a role in a tenant, or returns the existing one
func (s *Service) CreateRole(ctx context.Context, tenantID, name string) (*Role, error) {
	role := &Role{ID: uuid.NewString(), TenantID: tenantID, Name: name}
	err := s.store.CreateRole(ctx, role)
	if errors.Is(err, ErrAlreadyExists) {
		return s.store.GetRoleByName(ctx, tenantID, name)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug("created role %s in tenant %s", name, tenantID)
	return role, nil
}

// AddUserToTenant associates a user with a tenant (idempotent)
func (s *Service) AddUserToTenant(ctx context.Context, userID, tenantID string) error {
	return s.store.AddUserToTenant(ctx, userID, tenantID)
}

// AddUserToRole associates a user with a role (idempotent)
func (s *Service) AddUserToRole(ctx context.Context, userID, roleID string) error {
	return s.store.AddUserToRole(ctx, userID, roleID)
}

// RegisterDataset registers a dataset owned by ownerID, or returns the
// existing dataset with that name
func (s *Service) RegisterDataset(ctx context.Context, name, ownerID string) (*Dataset, error) {
	dataset := &Dataset{ID: uuid.NewString(), Name: name, OwnerID: ownerID}
	err := s.store.CreateDataset(ctx, dataset)
	if errors.Is(err, ErrAlreadyExists) {
		return s.store.GetDatasetByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug("registered dataset %s owned by %s", name, ownerID)
	return dataset, nil
}

// GetDataset retrieves a dataset by ID
func (s *Service) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	return s.store.GetDataset(ctx, id)
}

// GetDatasetByName retrieves a dataset by name
func (s *Service) GetDatasetByName(ctx context.Context, name string) (*Dataset, error) {
	return s.store.GetDatasetByName(ctx, name)
}

// Grant gives a principal a permission on a dataset. The granter must be the
// dataset owner or hold the share permission; otherwise ErrPermissionDenied.
// Granting an existing permission is a no-op.
func (s *Service) Grant(ctx context.Context, granterID, datasetID string, principal Principal, permission Permission) error {
	allowed, err := s.canShare(ctx, granterID, datasetID)
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.Warn("user %s denied granting %s on dataset %s", granterID, permission, datasetID)
		return fmt.Errorf("grant %s on dataset %s: %w", permission, datasetID, ErrPermissionDenied)
	}

	grant := &Grant{
		ID:         uuid.NewString(),
		DatasetID:  datasetID,
		Principal:  principal,
		Permission: permission,
		GrantedBy:  granterID,
	}
	err = s.store.CreateGrant(ctx, grant)
	if errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	if err == nil {
		s.logger.Info("granted %s on dataset %s to %s %s", permission, datasetID, principal.Type, principal.ID)
	}
	return err
}

// HasPermission reports whether a user holds a permission on a dataset,
// through ownership, a direct grant, or a grant to one of the user's roles
func (s *Service) HasPermission(ctx context.Context, userID, datasetID string, permission Permission) (bool, error) {
	dataset, err := s.store.GetDataset(ctx, datasetID)
	if err != nil {
		return false, err
	}
	if dataset.OwnerID == userID {
		return true, nil
	}

	grants, err := s.store.GrantsForDataset(ctx, datasetID)
	if err != nil {
		return false, err
	}

	var roleIDs map[string]bool
	for _, grant := range grants {
		if grant.Permission != permission {
			continue
		}
		switch grant.Principal.Type {
		case PrincipalUser:
			if grant.Principal.ID == userID {
				return true, nil
			}
		case PrincipalRole:
			if roleIDs == nil {
				roles, err := s.store.UserRoles(ctx, userID)
				if err != nil {
					return false, err
				}
				roleIDs = make(map[string]bool, len(roles))
				for _, role := range roles {
					roleIDs[role.ID] = true
				}
			}
			if roleIDs[grant.Principal.ID] {
				return true, nil
			}
		}
	}
	return false, nil
}

// RequireRead returns ErrPermissionDenied unless the user can read the dataset
func (s *Service) RequireRead(ctx context.Context, userID, datasetID string) error {
	ok, err := s.HasPermission(ctx, userID, datasetID, PermissionRead)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("read dataset %s: %w", datasetID, ErrPermissionDenied)
	}
	return nil
}

func (s *Service) canShare(ctx context.Context, userID, datasetID string) (bool, error) {
	return s.HasPermission(ctx, userID, datasetID, PermissionShare)
}
