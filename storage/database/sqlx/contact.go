package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/contact"
)

type contactRepository struct {
	db *sqlx.DB
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db *sqlx.DB) contact.Repository {
	return &contactRepository{db: db}
}

func (repo *contactRepository) CreateContact(ctx context.Context, c contact.PractitionerContact) (contact.PractitionerContact, error) {
	var created contact.PractitionerContact
	err := insertReturning(ctx, repo.db, &created, "practitioner_contacts", map[string]interface{}{
		"user_id":      c.UserID,
		"name":         c.Name,
		"relationship": c.Relationship,
		"phone":        c.Phone,
		"email":        c.Email,
		"is_primary":   c.IsPrimary,
		"created_at":   c.CreatedAt,
		"updated_at":   c.UpdatedAt,
	})
	return created, err
}

func (repo *contactRepository) GetContactByID(ctx context.Context, id string) (contact.PractitionerContact, error) {
	var c contact.PractitionerContact
	err := getOne(ctx, repo.db, &c, contact.ErrNotFound,
		psql.Select("*").From("practitioner_contacts").Where(sq.Eq{"id": id}))
	return c, err
}

func (repo *contactRepository) QueryContacts(ctx context.Context, filter contact.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]contact.PractitionerContact, int, error) {
	where := sq.And{}
	if filter.UserID != "" {
		where = append(where, sq.Eq{"user_id": filter.UserID})
	}
	if filter.Search != "" {
		where = append(where, ilike(filter.Search, "name", "email", "phone"))
	}

	contacts := make([]contact.PractitionerContact, 0)
	count, err := selectPage(ctx, repo.db, &contacts, "practitioner_contacts", where, page, orderings, "is_primary DESC", "lower(name)")
	return contacts, count, err
}

func (repo *contactRepository) UpdateContact(ctx context.Context, c contact.PractitionerContact) (contact.PractitionerContact, error) {
	var updated contact.PractitionerContact
	err := updateReturning(ctx, repo.db, &updated, contact.ErrNotFound, "practitioner_contacts", c.ID, map[string]interface{}{
		"name":         c.Name,
		"relationship": c.Relationship,
		"phone":        c.Phone,
		"email":        c.Email,
		"is_primary":   c.IsPrimary,
		"updated_at":   c.UpdatedAt,
	})
	return updated, err
}

func (repo *contactRepository) DeleteContact(ctx context.Context, id string) error {
	return exec(ctx, repo.db, contact.ErrNotFound, psql.Delete("practitioner_contacts").Where(sq.Eq{"id": id}))
}

func (repo *contactRepository) ClearPrimary(ctx context.Context, userID string, excludedIDs ...string) error {
	return exec(ctx, repo.db, nil, psql.Update("practitioner_contacts").
		Set("is_primary", false).
		Where(sq.And{sq.Eq{"user_id": userID}, notExcluded(excludedIDs)}))
}
