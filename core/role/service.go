package role

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
)

const (
	cachePrefix      = "privileges:"
	catalogCacheKey  = cachePrefix + "catalog"
	userCacheKeyTmpl = cachePrefix + "user:%s"
)

var (
	ErrNotFound          = core.NewNotFoundError("role not found")
	ErrPrivilegeNotFound = core.NewNotFoundError("privilege not found")
	ErrNameExists        = errors.New("a role with this name already exists")
	ErrBuiltIn           = errors.New("built-in roles cannot be deleted")
)

type Repository interface {
	CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error
	CreateRole(ctx context.Context, r Role) (Role, error)
	GetRoleByID(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	QueryRoles(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]Role, int, error)
	UpdateRole(ctx context.Context, r Role) (Role, error)
	DeleteRole(ctx context.Context, id string) error

	// QueryPrivileges does a case-insensitive match of search on privilege names and descriptions.
	QueryPrivileges(ctx context.Context, search string) ([]access.Privilege, error)
	// SyncPrivileges inserts the missing privileges (by name) and refreshes descriptions.
	SyncPrivileges(ctx context.Context, privs []access.Privilege) error
	RolePrivileges(ctx context.Context, roleID string) ([]access.Privilege, error)
	GrantPrivilege(ctx context.Context, roleID, privilegeID string) error
	RevokePrivilege(ctx context.Context, roleID, privilegeID string) error

	UserRoles(ctx context.Context, userID string) ([]Role, error)
	SetUserRoles(ctx context.Context, userID string, roleIDs []string) error
	// UserPrivileges is the union of the privileges of the user's roles.
	UserPrivileges(ctx context.Context, userID string) ([]access.Privilege, error)
}

// Service manages roles and resolves privileges. Privilege reads are cached
// and every mutation that can change them drops the whole privileges group.
type Service struct {
	repo     Repository
	cache    core.Cache
	cacheTTL time.Duration
	logger   core.Logger
}

var _ access.PrivilegeSource = (*Service)(nil)

func NewService(repo Repository, cache core.Cache, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: conf.Redis.DefaultCacheTTL,
		logger:   logger,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, name string, excludedIDs ...string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excludedIDs...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return errors.Wrap(err, "checking role name uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nr NewRole) (Role, error) {
	now := time.Now().UTC()
	r, err := svc.repo.CreateRole(ctx, Role{
		Name:        nr.Name,
		Description: nr.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Role{}, errors.Wrap(err, "creating role")
	}
	return r, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Role, error) {
	return svc.repo.GetRoleByID(ctx, id)
}

func (svc *Service) GetByName(ctx context.Context, name string) (Role, error) {
	return svc.repo.GetRoleByName(ctx, core.CleanString(name))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]Role, int, error) {
	return svc.repo.QueryRoles(ctx, filter, page, orderings)
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateRole) (Role, error) {
	r, err := svc.repo.UpdateRole(ctx, Role{
		ID:          id,
		Name:        ur.Name,
		Description: ur.Description,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Role{}, errors.Wrap(err, "updating role")
	}
	return r, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	r, err := svc.repo.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if isBuiltIn(r.Name) {
		return core.NewValidationError(ErrBuiltIn)
	}
	if err = svc.repo.DeleteRole(ctx, id); err != nil {
		return errors.Wrap(err, "deleting role")
	}
	svc.invalidate(ctx)
	return nil
}

func (svc *Service) Privileges(ctx context.Context, search string) ([]access.Privilege, error) {
	return svc.repo.QueryPrivileges(ctx, core.CleanString(search))
}

func (svc *Service) RolePrivileges(ctx context.Context, roleID string) ([]access.Privilege, error) {
	if _, err := svc.repo.GetRoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	return svc.repo.RolePrivileges(ctx, roleID)
}

// TogglePrivileges applies every grant and revoke independently and reports each one.
// Granting a held privilege or revoking a missing one succeeds.
func (svc *Service) TogglePrivileges(ctx context.Context, roleID string, tp TogglePrivileges) (core.BatchResult, error) {
	if _, err := svc.repo.GetRoleByID(ctx, roleID); err != nil {
		return core.BatchResult{}, err
	}
	defer svc.invalidate(ctx)

	grants := core.RunBatch(ctx, tp.Grant, func(ctx context.Context, privID string) error {
		return svc.repo.GrantPrivilege(ctx, roleID, privID)
	})
	revokes := core.RunBatch(ctx, tp.Revoke, func(ctx context.Context, privID string) error {
		return svc.repo.RevokePrivilege(ctx, roleID, privID)
	})
	return core.BatchResult{
		Results:   append(grants.Results, revokes.Results...),
		Succeeded: grants.Succeeded + revokes.Succeeded,
		Failed:    grants.Failed + revokes.Failed,
	}, nil
}

func (svc *Service) UserRoles(ctx context.Context, userID string) ([]Role, error) {
	return svc.repo.UserRoles(ctx, userID)
}

// CheckRoles returns a role_ids validation error for the first ID matching no role.
func (svc *Service) CheckRoles(ctx context.Context, roleIDs []string) error {
	for _, id := range roleIDs {
		if _, err := svc.repo.GetRoleByID(ctx, id); err != nil {
			if core.IsNotFound(err) {
				msg := fmt.Sprintf("unknown role %q", id)
				return core.NewValidationError(errors.New(msg), core.FieldError{Field: "role_ids", Error: msg})
			}
			return errors.Wrap(err, "finding role")
		}
	}
	return nil
}

func (svc *Service) SetUserRoles(ctx context.Context, userID string, roleIDs []string) error {
	if err := svc.CheckRoles(ctx, roleIDs); err != nil {
		return err
	}
	if err := svc.repo.SetUserRoles(ctx, userID, roleIDs); err != nil {
		return errors.Wrap(err, "setting user roles")
	}
	svc.invalidate(ctx)
	return nil
}

// Catalog returns the privileges known to the database.
func (svc *Service) Catalog(ctx context.Context) ([]access.Privilege, error) {
	var privs []access.Privilege
	if found, err := svc.cache.Get(ctx, catalogCacheKey, &privs); err != nil {
		svc.logger.Warn("reading cached privilege catalog", err)
	} else if found {
		return privs, nil
	}

	privs, err := svc.repo.QueryPrivileges(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "querying privileges")
	}
	if err = svc.cache.Set(ctx, catalogCacheKey, privs, svc.cacheTTL); err != nil {
		svc.logger.Warn("caching privilege catalog", err)
	}
	return privs, nil
}

func (svc *Service) UserPrivileges(ctx context.Context, userID string) ([]access.Privilege, error) {
	key := fmt.Sprintf(userCacheKeyTmpl, userID)

	var privs []access.Privilege
	if found, err := svc.cache.Get(ctx, key, &privs); err != nil {
		svc.logger.Warn("reading cached user privileges", err)
	} else if found {
		return privs, nil
	}

	privs, err := svc.repo.UserPrivileges(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user privileges")
	}
	if privs == nil {
		privs = []access.Privilege{}
	}
	if err = svc.cache.Set(ctx, key, privs, svc.cacheTTL); err != nil {
		svc.logger.Warn("caching user privileges", err)
	}
	return privs, nil
}

// Bootstrap syncs access.Catalog into the database and makes sure the built-in roles exist.
// The Administrator role is granted every catalog privilege, Instructor and Student their subsets.
func (svc *Service) Bootstrap(ctx context.Context) error {
	if err := svc.repo.SyncPrivileges(ctx, access.Catalog); err != nil {
		return errors.Wrap(err, "syncing privilege catalog")
	}
	defer svc.invalidate(ctx)

	privs, err := svc.repo.QueryPrivileges(ctx, "")
	if err != nil {
		return errors.Wrap(err, "querying privileges")
	}
	ids := make(map[string]string, len(privs))
	for _, p := range privs {
		ids[p.Name] = p.ID
	}

	builtIns := []struct {
		name, desc string
		privs      []string
	}{
		{Administrator, "Full access to the academy", access.CatalogNames()},
		{Instructor, "Teaches disciplines and takes attendance", access.InstructorPrivileges},
		{Student, "Practitioner enrolled in disciplines", access.StudentPrivileges},
	}
	for _, b := range builtIns {
		r, err := svc.repo.GetRoleByName(ctx, b.name)
		if core.IsNotFound(err) {
			r, err = svc.Create(ctx, NewRole{Name: b.name, Description: b.desc})
		}
		if err != nil {
			return errors.Wrapf(err, "ensuring role %q", b.name)
		}

		held, err := svc.repo.RolePrivileges(ctx, r.ID)
		if err != nil {
			return errors.Wrapf(err, "querying %q privileges", b.name)
		}
		heldSet := access.NameSetOf(held)
		for _, name := range b.privs {
			if heldSet.Has(name) {
				continue
			}
			if err = svc.repo.GrantPrivilege(ctx, r.ID, ids[name]); err != nil {
				return errors.Wrapf(err, "granting %q to %q", name, b.name)
			}
		}
	}
	return nil
}

// invalidate drops every cached privilege set.
func (svc *Service) invalidate(ctx context.Context) {
	if err := svc.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		svc.logger.Error("invalidating privileges cache", err)
	}
}

func isBuiltIn(name string) bool {
	return name == Administrator || name == Instructor || name == Student
}
