// Package contact stores the people to call for a practitioner.
package contact

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/user"
)

var ErrNotFound = core.NewNotFoundError("contact not found")

type PractitionerContact struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Relationship string    `json:"relationship" db:"relationship"`
	Phone        string    `json:"phone" db:"phone"`
	Email        string    `json:"email" db:"email"`
	IsPrimary    bool      `json:"is_primary" db:"is_primary"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type NewContact struct {
	UserID       string `json:"user_id" validate:"required"`
	Name         string `json:"name" validate:"required,max=100"`
	Relationship string `json:"relationship" validate:"max=50"`
	Phone        string `json:"phone" validate:"required,phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	IsPrimary    bool   `json:"is_primary"`
}

func (nc *NewContact) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Relationship = core.CleanString(nc.Relationship)
	nc.Phone = core.CleanString(nc.Phone)
	nc.Email = core.CleanString(nc.Email, true /* lower */)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	if _, err := svc.users.GetByID(ctx, nc.UserID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "unknown user"})
		}
		return errors.Wrap(err, "finding user")
	}
	return nil
}

// UpdateContact defines what may change on a contact. Empty fields are kept.
type UpdateContact struct {
	Name         string `json:"name" validate:"max=100"`
	Relationship string `json:"relationship" validate:"max=50"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	IsPrimary    *bool  `json:"is_primary"`
}

func (uc *UpdateContact) Validate(orig PractitionerContact, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if rel := core.CleanString(uc.Relationship); rel != "" {
		uc.Relationship = rel
	} else {
		uc.Relationship = orig.Relationship
	}
	if phone := core.CleanString(uc.Phone); phone != "" {
		uc.Phone = phone
	} else {
		uc.Phone = orig.Phone
	}
	if email := core.CleanString(uc.Email, true /* lower */); email != "" {
		uc.Email = email
	} else {
		uc.Email = orig.Email
	}
	if uc.IsPrimary == nil {
		p := orig.IsPrimary
		uc.IsPrimary = &p
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	UserID string `query:"user_id"`
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type Repository interface {
	CreateContact(ctx context.Context, c PractitionerContact) (PractitionerContact, error)
	GetContactByID(ctx context.Context, id string) (PractitionerContact, error)
	QueryContacts(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]PractitionerContact, int, error)
	UpdateContact(ctx context.Context, c PractitionerContact) (PractitionerContact, error)
	DeleteContact(ctx context.Context, id string) error
	// ClearPrimary unsets is_primary on every contact of the user but the excluded ones.
	ClearPrimary(ctx context.Context, userID string, excludedIDs ...string) error
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Service struct {
	repo  Repository
	users UserGetter
}

func NewService(repo Repository, users UserGetter) *Service {
	return &Service{repo: repo, users: users}
}

func (svc *Service) Create(ctx context.Context, nc NewContact) (PractitionerContact, error) {
	now := time.Now().UTC()
	c, err := svc.repo.CreateContact(ctx, PractitionerContact{
		UserID:       nc.UserID,
		Name:         nc.Name,
		Relationship: nc.Relationship,
		Phone:        nc.Phone,
		Email:        nc.Email,
		IsPrimary:    nc.IsPrimary,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return c, errors.Wrap(err, "creating contact")
	}
	if c.IsPrimary {
		if err := svc.repo.ClearPrimary(ctx, c.UserID, c.ID); err != nil {
			return c, errors.Wrap(err, "demoting other contacts")
		}
	}
	return c, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (PractitionerContact, error) {
	return svc.repo.GetContactByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]PractitionerContact, int, error) {
	return svc.repo.QueryContacts(ctx, filter, page, orderings)
}

func (svc *Service) Update(ctx context.Context, orig PractitionerContact, uc UpdateContact) (PractitionerContact, error) {
	promote := *uc.IsPrimary && !orig.IsPrimary

	orig.Name = uc.Name
	orig.Relationship = uc.Relationship
	orig.Phone = uc.Phone
	orig.Email = uc.Email
	orig.IsPrimary = *uc.IsPrimary
	orig.UpdatedAt = time.Now().UTC()

	c, err := svc.repo.UpdateContact(ctx, orig)
	if err != nil {
		return c, err
	}
	if promote {
		if err := svc.repo.ClearPrimary(ctx, c.UserID, c.ID); err != nil {
			return c, errors.Wrap(err, "demoting other contacts")
		}
	}
	return c, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteContact(ctx, id)
}
