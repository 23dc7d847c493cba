// Package matriculation enrolls practitioners in disciplines.
package matriculation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/user"
)

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

var (
	Statuses = []string{StatusActive, StatusInactive, StatusSuspended}

	ErrNotFound      = core.NewNotFoundError("matriculation not found")
	ErrAlreadyActive = errors.New("the practitioner is already matriculated in this discipline")
)

type Matriculation struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	DisciplineID string          `json:"discipline_id" db:"discipline_id"`
	Status       string          `json:"status" db:"status"`
	Rank         string          `json:"rank" db:"rank"`
	MonthlyFee   decimal.Decimal `json:"monthly_fee" db:"monthly_fee"`
	StartDate    core.Date       `json:"start_date" db:"start_date"`
	EndDate      core.Date       `json:"end_date" db:"end_date"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"` // UTC
}

type NewMatriculation struct {
	UserID       string          `json:"user_id" validate:"required"`
	DisciplineID string          `json:"discipline_id" validate:"required"`
	Rank         string          `json:"rank" validate:"max=50"`
	MonthlyFee   decimal.Decimal `json:"monthly_fee"`
	StartDate    core.Date       `json:"start_date"`
}

func (nm *NewMatriculation) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nm.Rank = core.CleanString(nm.Rank)
	if !nm.StartDate.Valid() {
		now := time.Now().UTC()
		nm.StartDate = core.NewDate(now.Year(), now.Month(), now.Day())
	}

	if err := validate.Struct(nm); err != nil {
		return err
	}
	if nm.MonthlyFee.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "monthly_fee", Error: "must not be negative"})
	}
	if err := svc.checkRefs(ctx, nm.UserID, nm.DisciplineID); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nm.UserID, nm.DisciplineID)
}

// UpdateMatriculation defines what may change on a Matriculation. Empty fields are kept.
type UpdateMatriculation struct {
	Status     string           `json:"status" validate:"omitempty,oneof=active inactive suspended"`
	Rank       string           `json:"rank" validate:"max=50"`
	MonthlyFee *decimal.Decimal `json:"monthly_fee"`
	StartDate  core.Date        `json:"start_date"`
	EndDate    core.Date        `json:"end_date"`
}

func (um *UpdateMatriculation) Validate(ctx context.Context, orig Matriculation, validate *validator.Validate, svc *Service) error {
	um.Status = keep(core.CleanString(um.Status, true /* lower */), orig.Status)
	um.Rank = keep(core.CleanString(um.Rank), orig.Rank)
	if um.MonthlyFee == nil {
		fee := orig.MonthlyFee
		um.MonthlyFee = &fee
	}
	if !um.StartDate.Valid() {
		um.StartDate = orig.StartDate
	}
	if !um.EndDate.Valid() {
		um.EndDate = orig.EndDate
	}

	if err := validate.Struct(um); err != nil {
		return err
	}
	if um.MonthlyFee.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "monthly_fee", Error: "must not be negative"})
	}
	if um.EndDate.Valid() && um.EndDate.Before(um.StartDate.Time) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must not precede start date"})
	}
	if um.Status != StatusInactive && orig.Status == StatusInactive {
		return svc.CheckUniqueness(ctx, orig.UserID, orig.DisciplineID, orig.ID)
	}
	return nil
}

type QueryFilter struct {
	UserID       string `query:"user_id"`
	DisciplineID string `query:"discipline_id"`
	Status       string `query:"status"`
	InstructorID string `query:"instructor_id"` // teaches the discipline
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

type Repository interface {
	// CheckActiveUniqueness returns ErrAlreadyActive when a non-inactive matriculation exists for the pair.
	CheckActiveUniqueness(ctx context.Context, userID, disciplineID string, excludedIDs ...string) error
	CreateMatriculation(ctx context.Context, m Matriculation) (Matriculation, error)
	GetMatriculationByID(ctx context.Context, id string) (Matriculation, error)
	QueryMatriculations(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]Matriculation, int, error)
	UpdateMatriculation(ctx context.Context, m Matriculation) (Matriculation, error)
	DeleteMatriculation(ctx context.Context, id string) error
}

type DisciplineGetter interface {
	GetByID(ctx context.Context, id string) (discipline.Discipline, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Service struct {
	repo        Repository
	disciplines DisciplineGetter
	users       UserGetter
}

func NewService(repo Repository, disciplines DisciplineGetter, users UserGetter) *Service {
	return &Service{
		repo:        repo,
		disciplines: disciplines,
		users:       users,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, userID, disciplineID string, excludedIDs ...string) error {
	if err := svc.repo.CheckActiveUniqueness(ctx, userID, disciplineID, excludedIDs...); err != nil {
		if err == ErrAlreadyActive {
			return core.NewValidationError(err, core.FieldError{Field: "discipline_id", Error: err.Error()})
		}
		return errors.Wrap(err, "checking matriculation uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nm NewMatriculation) (Matriculation, error) {
	now := time.Now().UTC()
	m, err := svc.repo.CreateMatriculation(ctx, Matriculation{
		UserID:       nm.UserID,
		DisciplineID: nm.DisciplineID,
		Status:       StatusActive,
		Rank:         nm.Rank,
		MonthlyFee:   nm.MonthlyFee,
		StartDate:    nm.StartDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return m, errors.Wrap(err, "creating matriculation")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Matriculation, error) {
	return svc.repo.GetMatriculationByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]Matriculation, int, error) {
	return svc.repo.QueryMatriculations(ctx, filter, page, orderings)
}

func (svc *Service) Update(ctx context.Context, orig Matriculation, um UpdateMatriculation) (Matriculation, error) {
	orig.Status = um.Status
	orig.Rank = um.Rank
	orig.MonthlyFee = *um.MonthlyFee
	orig.StartDate = um.StartDate
	orig.EndDate = um.EndDate
	if orig.Status == StatusInactive && !orig.EndDate.Valid() {
		now := time.Now().UTC()
		orig.EndDate = core.NewDate(now.Year(), now.Month(), now.Day())
	}
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMatriculation(ctx, orig)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteMatriculation(ctx, id)
}

func (svc *Service) checkRefs(ctx context.Context, userID, disciplineID string) error {
	if _, err := svc.users.GetByID(ctx, userID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "unknown user"})
		}
		return errors.Wrap(err, "finding user")
	}
	if _, err := svc.disciplines.GetByID(ctx, disciplineID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "discipline_id", Error: "unknown discipline"})
		}
		return errors.Wrap(err, "finding discipline")
	}
	return nil
}

func keep(val, orig string) string {
	if val != "" {
		return val
	}
	return orig
}
