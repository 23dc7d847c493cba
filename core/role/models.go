package role

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dojo/core"
)

// Built-in roles
const (
	Administrator = "Administrator"
	Instructor    = "Instructor"
	Student       = "Student"
)

type Role struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewRole contains information needed to create a new Role.
type NewRole struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (nr *NewRole) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Description = core.CleanString(nr.Description)

	if err := validate.Struct(nr); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nr.Name)
}

// UpdateRole defines what information may be provided to modify an existing Role. Empty fields are kept.
type UpdateRole struct {
	Name        string `json:"name" validate:"max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (ur *UpdateRole) Validate(ctx context.Context, orig Role, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(ur.Name); name != "" {
		ur.Name = name
	} else {
		ur.Name = orig.Name
	}
	if desc := core.CleanString(ur.Description); desc != "" {
		ur.Description = desc
	} else {
		ur.Description = orig.Description
	}

	if err := validate.Struct(ur); err != nil {
		return err
	}
	if isBuiltIn(orig.Name) && ur.Name != orig.Name {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "built-in roles cannot be renamed"})
	}
	return svc.CheckUniqueness(ctx, ur.Name, orig.ID)
}

// TogglePrivileges grants and revokes privileges (by ID) on a role.
type TogglePrivileges struct {
	Grant  []string `json:"grant"`
	Revoke []string `json:"revoke"`
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// AssignRoles sets the roles of a user.
type AssignRoles struct {
	RoleIDs []string `json:"role_ids"`
}
