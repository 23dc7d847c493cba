package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	found, err := exists(ctx, repo.db, psql.Select("1").From("users").Where(sq.And{
		sq.Eq{"email": email},
		notExcluded(excludedIDs),
	}))
	if err != nil {
		return errors.Wrap(err, "checking email")
	}
	if found {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	var created user.User
	err := insertReturning(ctx, repo.db, &created, "users", map[string]interface{}{
		"first_name":        usr.FirstName,
		"surname":           usr.Surname,
		"email":             usr.Email,
		"phone":             usr.Phone,
		"birth_date":        usr.BirthDate,
		"status":            usr.Status,
		"profile_image_url": usr.ProfileImageURL,
		"password_hash":     usr.PasswordHash,
		"created_at":        usr.CreatedAt,
		"updated_at":        usr.UpdatedAt,
	})
	if err != nil {
		if isPQError(err, uniqueViolation) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, err
	}
	created.Roles = []role.Role{}
	return created, nil
}

func (repo *userRepository) get(ctx context.Context, where sq.Sqlizer) (user.User, error) {
	var usr user.User
	if err := getOne(ctx, repo.db, &usr, user.ErrNotFound, psql.Select("*").From("users").Where(where)); err != nil {
		return user.User{}, err
	}
	users := []user.User{usr}
	if err := repo.loadRoles(ctx, users); err != nil {
		return user.User{}, err
	}
	return users[0], nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.get(ctx, sq.Eq{"id": id})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, sq.Eq{"email": email})
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]user.User, int, error) {
	where := sq.And{}
	if filter.Search != "" {
		where = append(where, ilike(filter.Search, "first_name", "surname", "email"))
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	if filter.RoleID != "" {
		where = append(where, sq.Expr("id IN (SELECT user_id FROM user_roles WHERE role_id = ?)", filter.RoleID))
	}

	users := make([]user.User, 0)
	count, err := selectPage(ctx, repo.db, &users, "users", where, page, orderings, "created_at", "id")
	if err != nil {
		return nil, 0, err
	}
	if err = repo.loadRoles(ctx, users); err != nil {
		return nil, 0, err
	}
	return users, count, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	values := map[string]interface{}{
		"first_name":        usr.FirstName,
		"surname":           usr.Surname,
		"email":             usr.Email,
		"phone":             usr.Phone,
		"birth_date":        usr.BirthDate,
		"status":            usr.Status,
		"profile_image_url": usr.ProfileImageURL,
		"updated_at":        usr.UpdatedAt,
	}
	if usr.PasswordHash != nil {
		values["password_hash"] = usr.PasswordHash
	}

	var updated user.User
	if err := updateReturning(ctx, repo.db, &updated, user.ErrNotFound, "users", usr.ID, values); err != nil {
		if isPQError(err, uniqueViolation) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, err
	}
	users := []user.User{updated}
	if err := repo.loadRoles(ctx, users); err != nil {
		return user.User{}, err
	}
	return users[0], nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) (user.User, error) {
	var updated user.User
	err := updateReturning(ctx, repo.db, &updated, user.ErrNotFound, "users", id, map[string]interface{}{"last_login": at})
	if err != nil {
		return user.User{}, err
	}
	users := []user.User{updated}
	if err = repo.loadRoles(ctx, users); err != nil {
		return user.User{}, err
	}
	return users[0], nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return exec(ctx, repo.db, nil, psql.Delete("users").Where(sq.Eq{"id": ids}))
}

type userRole struct {
	UserID string `db:"user_id"`
	role.Role
}

// loadRoles attaches their roles to the users in place.
func (repo *userRepository) loadRoles(ctx context.Context, users []user.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	for i, usr := range users {
		ids[i] = usr.ID
	}

	query, args, err := psql.Select("ur.user_id", "r.*").
		From("user_roles ur").
		Join("roles r ON r.id = ur.role_id").
		Where(sq.Eq{"ur.user_id": ids}).
		OrderBy("r.name").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building user roles query")
	}
	var rows []userRole
	if err = sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return errors.Wrap(err, "selecting user roles")
	}

	byUser := make(map[string][]role.Role, len(users))
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row.Role)
	}
	for i := range users {
		users[i].Roles = byUser[users[i].ID]
		if users[i].Roles == nil {
			users[i].Roles = []role.Role{}
		}
	}
	return nil
}
