package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/role"
)

// Statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

var Statuses = []string{StatusActive, StatusInactive, StatusSuspended}

type User struct {
	ID              string      `json:"id" db:"id"`
	FirstName       string      `json:"first_name" db:"first_name"`
	Surname         string      `json:"surname" db:"surname"`
	Email           string      `json:"email" db:"email"`
	Phone           string      `json:"phone" db:"phone"`
	BirthDate       core.Date   `json:"birth_date" db:"birth_date"`
	Status          string      `json:"status" db:"status"`
	ProfileImageURL string      `json:"profile_image_url" db:"profile_image_url"`
	Roles           []role.Role `json:"roles" db:"-"`
	PasswordHash    []byte      `json:"-" db:"password_hash"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"` // UTC
	LastLogin       null.Time   `json:"last_login" db:"last_login"` // UTC
}

func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.Surname)
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsActive() bool { return u.Status == StatusActive }

func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Person identifies the user in log reports.
func (u *User) Person() core.Person {
	return core.Person{ID: u.ID, Name: u.Name(), Email: u.Email}
}

// NewUser contains information needed to create a new User.
// RoleIDs is ignored on signup: new accounts get the default signup role.
type NewUser struct {
	FirstName       string    `json:"first_name" validate:"required,max=100"`
	Surname         string    `json:"surname" validate:"required,max=100"`
	Email           string    `json:"email" validate:"required,email"`
	Phone           string    `json:"phone" validate:"omitempty,phone"`
	BirthDate       core.Date `json:"birth_date"`
	Password        string    `json:"password" validate:"required"`
	PasswordConfirm string    `json:"password_confirm" validate:"required,eqfield=Password"`
	RoleIDs         []string  `json:"role_ids"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.Surname = core.CleanString(nu.Surname)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if err := checkBirthDate(nu.BirthDate); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields are kept. Only administrators may change Email. Status goes through the status change flow.
type UpdateUser struct {
	FirstName       string    `json:"first_name" validate:"max=100"`
	Surname         string    `json:"surname" validate:"max=100"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Phone           string    `json:"phone" validate:"omitempty,phone"`
	BirthDate       core.Date `json:"birth_date"`
	ProfileImageURL string    `json:"profile_image_url" validate:"omitempty,url"`
	Password        string    `json:"password" validate:"omitempty"`
	PasswordConfirm string    `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, orig User, validate *validator.Validate, svc Service) error {
	uu.FirstName = keep(core.CleanString(uu.FirstName), orig.FirstName)
	uu.Surname = keep(core.CleanString(uu.Surname), orig.Surname)
	uu.Email = keep(core.CleanString(uu.Email, true /* lower */), orig.Email)
	uu.Phone = keep(core.CleanString(uu.Phone), orig.Phone)
	uu.ProfileImageURL = keep(core.CleanString(uu.ProfileImageURL), orig.ProfileImageURL)
	if !uu.BirthDate.Valid() {
		uu.BirthDate = orig.BirthDate
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	if err := checkBirthDate(uu.BirthDate); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, orig.ID)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search string `query:"search"` // case-insensitive match on first name, surname or email
	Status string `query:"status"`
	RoleID string `query:"role_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.RoleID = core.CleanString(qf.RoleID)
}

func keep(val, orig string) string {
	if val != "" {
		return val
	}
	return orig
}

func checkBirthDate(d core.Date) error {
	if d.Valid() && d.After(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "birth_date", Error: "birth date cannot be in the future"})
	}
	return nil
}
