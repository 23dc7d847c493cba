package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/role"
)

type roleRepository struct {
	db *sqlx.DB
}

var _ role.Repository = (*roleRepository)(nil)

func NewRoleRepository(db *sqlx.DB) role.Repository {
	return &roleRepository{db: db}
}

func (repo *roleRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error {
	found, err := exists(ctx, repo.db, psql.Select("1").From("roles").Where(sq.And{
		sq.Expr("lower(name) = lower(?)", name),
		notExcluded(excludedIDs),
	}))
	if err != nil {
		return errors.Wrap(err, "checking role name")
	}
	if found {
		return role.ErrNameExists
	}
	return nil
}

func (repo *roleRepository) CreateRole(ctx context.Context, r role.Role) (role.Role, error) {
	var created role.Role
	err := insertReturning(ctx, repo.db, &created, "roles", map[string]interface{}{
		"name":        r.Name,
		"description": r.Description,
		"created_at":  r.CreatedAt,
		"updated_at":  r.UpdatedAt,
	})
	if isPQError(err, uniqueViolation) {
		return role.Role{}, role.ErrNameExists
	}
	return created, err
}

func (repo *roleRepository) GetRoleByID(ctx context.Context, id string) (role.Role, error) {
	var r role.Role
	err := getOne(ctx, repo.db, &r, role.ErrNotFound, psql.Select("*").From("roles").Where(sq.Eq{"id": id}))
	return r, err
}

func (repo *roleRepository) GetRoleByName(ctx context.Context, name string) (role.Role, error) {
	var r role.Role
	err := getOne(ctx, repo.db, &r, role.ErrNotFound, psql.Select("*").From("roles").Where(sq.Eq{"name": name}))
	return r, err
}

func (repo *roleRepository) QueryRoles(ctx context.Context, filter role.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]role.Role, int, error) {
	where := sq.And{}
	if filter.Search != "" {
		where = append(where, ilike(filter.Search, "name", "description"))
	}
	roles := make([]role.Role, 0)
	count, err := selectPage(ctx, repo.db, &roles, "roles", where, page, orderings, "name")
	return roles, count, err
}

func (repo *roleRepository) UpdateRole(ctx context.Context, r role.Role) (role.Role, error) {
	var updated role.Role
	err := updateReturning(ctx, repo.db, &updated, role.ErrNotFound, "roles", r.ID, map[string]interface{}{
		"name":        r.Name,
		"description": r.Description,
		"updated_at":  r.UpdatedAt,
	})
	if isPQError(err, uniqueViolation) {
		return role.Role{}, role.ErrNameExists
	}
	return updated, err
}

func (repo *roleRepository) DeleteRole(ctx context.Context, id string) error {
	return exec(ctx, repo.db, role.ErrNotFound, psql.Delete("roles").Where(sq.Eq{"id": id}))
}

func (repo *roleRepository) QueryPrivileges(ctx context.Context, search string) ([]access.Privilege, error) {
	stmt := psql.Select("*").From("privileges").OrderBy("name")
	if search != "" {
		stmt = stmt.Where(ilike(search, "name", "description"))
	}
	return repo.selectPrivileges(ctx, stmt)
}

func (repo *roleRepository) SyncPrivileges(ctx context.Context, privs []access.Privilege) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range privs {
		err = exec(ctx, tx, nil, psql.Insert("privileges").
			Columns("name", "description").
			Values(p.Name, p.Description).
			Suffix("ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description"))
		if err != nil {
			return errors.Wrapf(err, "syncing privilege %q", p.Name)
		}
	}
	return tx.Commit()
}

func (repo *roleRepository) RolePrivileges(ctx context.Context, roleID string) ([]access.Privilege, error) {
	return repo.selectPrivileges(ctx, psql.Select("p.*").
		From("privileges p").
		Join("role_privileges rp ON rp.privilege_id = p.id").
		Where(sq.Eq{"rp.role_id": roleID}).
		OrderBy("p.name"))
}

func (repo *roleRepository) GrantPrivilege(ctx context.Context, roleID, privilegeID string) error {
	err := exec(ctx, repo.db, nil, psql.Insert("role_privileges").
		Columns("role_id", "privilege_id").
		Values(roleID, privilegeID).
		Suffix("ON CONFLICT DO NOTHING"))
	if isPQError(err, foreignKeyViolation) {
		return role.ErrPrivilegeNotFound
	}
	return err
}

func (repo *roleRepository) RevokePrivilege(ctx context.Context, roleID, privilegeID string) error {
	found, err := exists(ctx, repo.db, psql.Select("1").From("privileges").Where(sq.Eq{"id": privilegeID}))
	if err != nil {
		return errors.Wrap(err, "finding privilege")
	}
	if !found {
		return role.ErrPrivilegeNotFound
	}
	return exec(ctx, repo.db, nil, psql.Delete("role_privileges").Where(sq.Eq{
		"role_id":      roleID,
		"privilege_id": privilegeID,
	}))
}

func (repo *roleRepository) UserRoles(ctx context.Context, userID string) ([]role.Role, error) {
	query, args, err := psql.Select("r.*").
		From("roles r").
		Join("user_roles ur ON ur.role_id = r.id").
		Where(sq.Eq{"ur.user_id": userID}).
		OrderBy("r.name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building user roles query")
	}
	roles := make([]role.Role, 0)
	err = sqlx.SelectContext(ctx, repo.db, &roles, query, args...)
	return roles, err
}

// SetUserRoles replaces the roles of a user in one transaction.
func (repo *roleRepository) SetUserRoles(ctx context.Context, userID string, roleIDs []string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err = exec(ctx, tx, nil, psql.Delete("user_roles").Where(sq.Eq{"user_id": userID})); err != nil {
		return errors.Wrap(err, "clearing user roles")
	}
	if len(roleIDs) > 0 {
		stmt := psql.Insert("user_roles").Columns("user_id", "role_id").Suffix("ON CONFLICT DO NOTHING")
		for _, id := range roleIDs {
			stmt = stmt.Values(userID, id)
		}
		if err = exec(ctx, tx, nil, stmt); err != nil {
			if isPQError(err, foreignKeyViolation) {
				return role.ErrNotFound
			}
			return errors.Wrap(err, "inserting user roles")
		}
	}
	return tx.Commit()
}

func (repo *roleRepository) UserPrivileges(ctx context.Context, userID string) ([]access.Privilege, error) {
	return repo.selectPrivileges(ctx, psql.Select("DISTINCT p.*").
		From("privileges p").
		Join("role_privileges rp ON rp.privilege_id = p.id").
		Join("user_roles ur ON ur.role_id = rp.role_id").
		Where(sq.Eq{"ur.user_id": userID}).
		OrderBy("p.name"))
}

func (repo *roleRepository) selectPrivileges(ctx context.Context, stmt sq.SelectBuilder) ([]access.Privilege, error) {
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building privileges query")
	}
	privs := make([]access.Privilege, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &privs, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting privileges")
	}
	return privs, nil
}
