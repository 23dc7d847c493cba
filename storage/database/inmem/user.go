package inmemdb

import (
	"cmp"
	"context"
	"time"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/user"
)

var userComparers = comparers[user.User]{
	"first_name": func(a, b user.User) int { return compareFold(a.FirstName, b.FirstName) },
	"surname":    func(a, b user.User) int { return compareFold(a.Surname, b.Surname) },
	"email":      func(a, b user.User) int { return cmp.Compare(a.Email, b.Email) },
	"status":     func(a, b user.User) int { return cmp.Compare(a.Status, b.Status) },
	"created_at": func(a, b user.User) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"last_login": func(a, b user.User) int { return compareTime(a.LastLogin.Time, b.LastLogin.Time) },
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// withRoles copies the stored user and attaches its roles. Callers hold the lock.
func (repo *userRepository) withRoles(usr *user.User) user.User {
	u := *usr
	u.Roles = repo.db.userRolesLocked(u.ID)
	return u
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email && !excluded(usr.ID, excludedIDs) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = newID()
	usr.Roles = nil
	repo.db.users[usr.ID] = &usr
	return repo.withRoles(&usr), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return repo.withRoles(usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return repo.withRoles(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]user.User, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if filter.Search != "" && !contains(usr.FirstName, filter.Search) && !contains(usr.Surname, filter.Search) &&
			!contains(usr.Email, filter.Search) {
			continue
		}
		if filter.Status != "" && usr.Status != filter.Status {
			continue
		}
		if filter.RoleID != "" && !repo.db.userRoles[usr.ID].has(filter.RoleID) {
			continue
		}
		users = append(users, repo.withRoles(usr))
	}

	sortItems(users, orderings, userComparers, func(a, b user.User) int {
		if c := compareTime(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(users, page), len(users), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	orig.FirstName = usr.FirstName
	orig.Surname = usr.Surname
	orig.Email = usr.Email
	orig.Phone = usr.Phone
	orig.BirthDate = usr.BirthDate
	orig.Status = usr.Status
	orig.ProfileImageURL = usr.ProfileImageURL
	orig.UpdatedAt = usr.UpdatedAt
	return repo.withRoles(orig), nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.LastLogin.SetValid(at)
	return repo.withRoles(usr), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
		delete(repo.db.userRoles, id)
		for cid, c := range repo.db.contacts {
			if c.UserID == id {
				delete(repo.db.contacts, cid)
			}
		}
		for mid, m := range repo.db.matriculations {
			if m.UserID == id {
				delete(repo.db.matriculations, mid)
			}
		}
		for aid, a := range repo.db.absences {
			if a.UserID == id {
				delete(repo.db.absences, aid)
			}
		}
		for _, rows := range repo.db.attendance {
			delete(rows, id)
		}
	}
	return nil
}

// userRolesLocked returns the roles of a user sorted by name. Callers hold the lock.
func (db *DB) userRolesLocked(userID string) []role.Role {
	roles := make([]role.Role, 0, len(db.userRoles[userID]))
	for rid := range db.userRoles[userID] {
		if r, ok := db.roles[rid]; ok {
			roles = append(roles, *r)
		}
	}
	sortItems(roles, nil, nil, func(a, b role.Role) int { return cmp.Compare(a.Name, b.Name) })
	return roles
}
