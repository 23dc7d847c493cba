package inmemdb

import (
	"cmp"
	"context"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/role"
)

var roleComparers = comparers[role.Role]{
	"name":       func(a, b role.Role) int { return compareFold(a.Name, b.Name) },
	"created_at": func(a, b role.Role) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type roleRepository struct {
	db *DB
}

var _ role.Repository = (*roleRepository)(nil)

func NewRoleRepository(db *DB) role.Repository {
	return &roleRepository{db: db}
}

func (repo *roleRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.roles {
		if compareFold(r.Name, name) == 0 && !excluded(r.ID, excludedIDs) {
			return role.ErrNameExists
		}
	}
	return nil
}

func (repo *roleRepository) CreateRole(ctx context.Context, r role.Role) (role.Role, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r.ID = newID()
	repo.db.roles[r.ID] = &r
	return r, nil
}

func (repo *roleRepository) GetRoleByID(ctx context.Context, id string) (role.Role, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.roles[id]; ok {
		return *r, nil
	}
	return role.Role{}, role.ErrNotFound
}

func (repo *roleRepository) GetRoleByName(ctx context.Context, name string) (role.Role, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.roles {
		if r.Name == name {
			return *r, nil
		}
	}
	return role.Role{}, role.ErrNotFound
}

func (repo *roleRepository) QueryRoles(ctx context.Context, filter role.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]role.Role, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	roles := make([]role.Role, 0, len(repo.db.roles))
	for _, r := range repo.db.roles {
		if filter.Search != "" && !contains(r.Name, filter.Search) && !contains(r.Description, filter.Search) {
			continue
		}
		roles = append(roles, *r)
	}
	sortItems(roles, orderings, roleComparers, func(a, b role.Role) int { return cmp.Compare(a.Name, b.Name) })
	return paginate(roles, page), len(roles), nil
}

func (repo *roleRepository) UpdateRole(ctx context.Context, r role.Role) (role.Role, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.roles[r.ID]
	if !ok {
		return role.Role{}, role.ErrNotFound
	}
	orig.Name = r.Name
	orig.Description = r.Description
	orig.UpdatedAt = r.UpdatedAt
	return *orig, nil
}

func (repo *roleRepository) DeleteRole(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.roles[id]; !ok {
		return role.ErrNotFound
	}
	delete(repo.db.roles, id)
	delete(repo.db.rolePrivileges, id)
	for _, roles := range repo.db.userRoles {
		delete(roles, id)
	}
	return nil
}

func (repo *roleRepository) QueryPrivileges(ctx context.Context, search string) ([]access.Privilege, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	privs := make([]access.Privilege, 0, len(repo.db.privileges))
	for _, p := range repo.db.privileges {
		if search != "" && !contains(p.Name, search) && !contains(p.Description, search) {
			continue
		}
		privs = append(privs, *p)
	}
	sortPrivileges(privs)
	return privs, nil
}

func (repo *roleRepository) SyncPrivileges(ctx context.Context, privs []access.Privilege) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	byName := make(map[string]*access.Privilege, len(repo.db.privileges))
	for _, p := range repo.db.privileges {
		byName[p.Name] = p
	}
	for _, p := range privs {
		if stored, ok := byName[p.Name]; ok {
			stored.Description = p.Description
			continue
		}
		p.ID = newID()
		repo.db.privileges[p.ID] = &p
	}
	return nil
}

func (repo *roleRepository) RolePrivileges(ctx context.Context, roleID string) ([]access.Privilege, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.privilegesLocked(repo.db.rolePrivileges[roleID]), nil
}

func (repo *roleRepository) GrantPrivilege(ctx context.Context, roleID, privilegeID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.roles[roleID]; !ok {
		return role.ErrNotFound
	}
	if _, ok := repo.db.privileges[privilegeID]; !ok {
		return role.ErrPrivilegeNotFound
	}
	if repo.db.rolePrivileges[roleID] == nil {
		repo.db.rolePrivileges[roleID] = make(set)
	}
	repo.db.rolePrivileges[roleID].add(privilegeID)
	return nil
}

func (repo *roleRepository) RevokePrivilege(ctx context.Context, roleID, privilegeID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.privileges[privilegeID]; !ok {
		return role.ErrPrivilegeNotFound
	}
	delete(repo.db.rolePrivileges[roleID], privilegeID)
	return nil
}

func (repo *roleRepository) UserRoles(ctx context.Context, userID string) ([]role.Role, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.userRolesLocked(userID), nil
}

func (repo *roleRepository) SetUserRoles(ctx context.Context, userID string, roleIDs []string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	roles := make(set, len(roleIDs))
	for _, id := range roleIDs {
		if _, ok := repo.db.roles[id]; !ok {
			return role.ErrNotFound
		}
		roles.add(id)
	}
	repo.db.userRoles[userID] = roles
	return nil
}

func (repo *roleRepository) UserPrivileges(ctx context.Context, userID string) ([]access.Privilege, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make(set)
	for rid := range repo.db.userRoles[userID] {
		for pid := range repo.db.rolePrivileges[rid] {
			ids.add(pid)
		}
	}
	return repo.db.privilegesLocked(ids), nil
}

// privilegesLocked resolves privilege ids sorted by name. Callers hold the lock.
func (db *DB) privilegesLocked(ids set) []access.Privilege {
	privs := make([]access.Privilege, 0, len(ids))
	for id := range ids {
		if p, ok := db.privileges[id]; ok {
			privs = append(privs, *p)
		}
	}
	sortPrivileges(privs)
	return privs
}

func sortPrivileges(privs []access.Privilege) {
	sortItems(privs, nil, nil, func(a, b access.Privilege) int { return cmp.Compare(a.Name, b.Name) })
}
