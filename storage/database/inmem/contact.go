package inmemdb

import (
	"context"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/contact"
)

var contactComparers = comparers[contact.PractitionerContact]{
	"name":       func(a, b contact.PractitionerContact) int { return compareFold(a.Name, b.Name) },
	"created_at": func(a, b contact.PractitionerContact) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type contactRepository struct {
	db *DB
}

var _ contact.Repository = (*contactRepository)(nil)

func NewContactRepository(db *DB) contact.Repository {
	return &contactRepository{db: db}
}

func (repo *contactRepository) CreateContact(ctx context.Context, c contact.PractitionerContact) (contact.PractitionerContact, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = newID()
	repo.db.contacts[c.ID] = &c
	return c, nil
}

func (repo *contactRepository) GetContactByID(ctx context.Context, id string) (contact.PractitionerContact, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.contacts[id]; ok {
		return *c, nil
	}
	return contact.PractitionerContact{}, contact.ErrNotFound
}

func (repo *contactRepository) QueryContacts(ctx context.Context, filter contact.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]contact.PractitionerContact, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	contacts := make([]contact.PractitionerContact, 0)
	for _, c := range repo.db.contacts {
		if filter.UserID != "" && c.UserID != filter.UserID {
			continue
		}
		if filter.Search != "" && !contains(c.Name, filter.Search) && !contains(c.Email, filter.Search) &&
			!contains(c.Phone, filter.Search) {
			continue
		}
		contacts = append(contacts, *c)
	}
	sortItems(contacts, orderings, contactComparers, func(a, b contact.PractitionerContact) int {
		if a.IsPrimary != b.IsPrimary {
			if a.IsPrimary {
				return -1
			}
			return 1
		}
		return compareFold(a.Name, b.Name)
	})
	return paginate(contacts, page), len(contacts), nil
}

func (repo *contactRepository) UpdateContact(ctx context.Context, c contact.PractitionerContact) (contact.PractitionerContact, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.contacts[c.ID]; !ok {
		return contact.PractitionerContact{}, contact.ErrNotFound
	}
	repo.db.contacts[c.ID] = &c
	return c, nil
}

func (repo *contactRepository) DeleteContact(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.contacts[id]; !ok {
		return contact.ErrNotFound
	}
	delete(repo.db.contacts, id)
	return nil
}

func (repo *contactRepository) ClearPrimary(ctx context.Context, userID string, excludedIDs ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, c := range repo.db.contacts {
		if c.UserID == userID && !excluded(c.ID, excludedIDs) {
			c.IsPrimary = false
		}
	}
	return nil
}
