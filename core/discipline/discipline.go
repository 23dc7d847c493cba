// Package discipline manages the martial arts taught at the academy.
package discipline

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	Statuses = []string{StatusActive, StatusInactive}

	ErrNotFound   = core.NewNotFoundError("discipline not found")
	ErrNameExists = errors.New("a discipline with this name already exists")
)

type Discipline struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type NewDiscipline struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

func (nd *NewDiscipline) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nd.Name = core.CleanString(nd.Name)
	nd.Description = core.CleanString(nd.Description)
	nd.ImageURL = core.CleanString(nd.ImageURL)

	if err := validate.Struct(nd); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nd.Name)
}

// UpdateDiscipline changes the descriptive fields. Status goes through the status change flow.
type UpdateDiscipline struct {
	Name        string `json:"name" validate:"max=100"`
	Description string `json:"description" validate:"max=2000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

func (ud *UpdateDiscipline) Validate(ctx context.Context, orig Discipline, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(ud.Name); name != "" {
		ud.Name = name
	} else {
		ud.Name = orig.Name
	}
	if desc := core.CleanString(ud.Description); desc != "" {
		ud.Description = desc
	} else {
		ud.Description = orig.Description
	}
	if img := core.CleanString(ud.ImageURL); img != "" {
		ud.ImageURL = img
	} else {
		ud.ImageURL = orig.ImageURL
	}

	if err := validate.Struct(ud); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ud.Name, orig.ID)
}

type QueryFilter struct {
	Search         string `query:"search"`
	Status         string `query:"status"`
	InstructorID   string `query:"instructor_id"`   // teaches one of the discipline's schedules
	PractitionerID string `query:"practitioner_id"` // holds a matriculation in the discipline
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

type Repository interface {
	CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error
	CreateDiscipline(ctx context.Context, d Discipline) (Discipline, error)
	GetDisciplineByID(ctx context.Context, id string) (Discipline, error)
	QueryDisciplines(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]Discipline, int, error)
	UpdateDiscipline(ctx context.Context, d Discipline) (Discipline, error)
	DeleteDiscipline(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, name string, excludedIDs ...string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excludedIDs...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return errors.Wrap(err, "checking discipline name uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nd NewDiscipline) (Discipline, error) {
	now := time.Now().UTC()
	d, err := svc.repo.CreateDiscipline(ctx, Discipline{
		Name:        nd.Name,
		Description: nd.Description,
		ImageURL:    nd.ImageURL,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return d, errors.Wrap(err, "creating discipline")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Discipline, error) {
	return svc.repo.GetDisciplineByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]Discipline, int, error) {
	return svc.repo.QueryDisciplines(ctx, filter, page, orderings)
}

func (svc *Service) Update(ctx context.Context, orig Discipline, ud UpdateDiscipline) (Discipline, error) {
	orig.Name = ud.Name
	orig.Description = ud.Description
	orig.ImageURL = ud.ImageURL
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDiscipline(ctx, orig)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteDiscipline(ctx, id)
}

func (svc *Service) CurrentStatus(ctx context.Context, id string) (string, error) {
	d, err := svc.repo.GetDisciplineByID(ctx, id)
	if err != nil {
		return "", err
	}
	return d.Status, nil
}

func (svc *Service) CommitStatus(ctx context.Context, id, status string) (interface{}, error) {
	d, err := svc.repo.GetDisciplineByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDiscipline(ctx, d)
}
