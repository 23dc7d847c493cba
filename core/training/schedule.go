package training

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/dojo/core"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Schedule is a weekly recurring class of a discipline.
type Schedule struct {
	ID           string    `json:"id" db:"id"`
	DisciplineID string    `json:"discipline_id" db:"discipline_id"`
	InstructorID string    `json:"instructor_id" db:"instructor_id"`
	Weekday      int       `json:"weekday" db:"weekday"` // 0 = Sunday
	StartTime    string    `json:"start_time" db:"start_time"`
	EndTime      string    `json:"end_time" db:"end_time"`
	Location     string    `json:"location" db:"location"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type NewSchedule struct {
	DisciplineID string `json:"discipline_id" validate:"required"`
	InstructorID string `json:"instructor_id" validate:"required"`
	Weekday      *int   `json:"weekday" validate:"required,min=0,max=6"`
	StartTime    string `json:"start_time" validate:"required,hhmm"`
	EndTime      string `json:"end_time" validate:"required,hhmm"`
	Location     string `json:"location" validate:"max=200"`
}

func (ns *NewSchedule) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Location = core.CleanString(ns.Location)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if err := checkTimeRange(ns.StartTime, ns.EndTime); err != nil {
		return err
	}
	return svc.checkRefs(ctx, ns.DisciplineID, ns.InstructorID)
}

// UpdateSchedule defines what may change on a Schedule. Empty fields are kept.
type UpdateSchedule struct {
	InstructorID string `json:"instructor_id"`
	Weekday      *int   `json:"weekday" validate:"omitempty,min=0,max=6"`
	StartTime    string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime      string `json:"end_time" validate:"omitempty,hhmm"`
	Location     string `json:"location" validate:"max=200"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (us *UpdateSchedule) Validate(ctx context.Context, orig Schedule, validate *validator.Validate, svc *Service) error {
	us.InstructorID = keep(core.CleanString(us.InstructorID), orig.InstructorID)
	us.StartTime = keep(core.CleanString(us.StartTime), orig.StartTime)
	us.EndTime = keep(core.CleanString(us.EndTime), orig.EndTime)
	us.Location = keep(core.CleanString(us.Location), orig.Location)
	us.Status = keep(core.CleanString(us.Status, true /* lower */), orig.Status)
	if us.Weekday == nil {
		wd := orig.Weekday
		us.Weekday = &wd
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	if err := checkTimeRange(us.StartTime, us.EndTime); err != nil {
		return err
	}
	return svc.checkRefs(ctx, "", us.InstructorID)
}

type ScheduleFilter struct {
	DisciplineID string `query:"discipline_id"`
	InstructorID string `query:"instructor_id"`
	Weekday      *int   `query:"-"`
	Status       string `query:"status"`
}

func (svc *Service) CreateSchedule(ctx context.Context, ns NewSchedule) (Schedule, error) {
	now := time.Now().UTC()
	return svc.repo.CreateSchedule(ctx, Schedule{
		DisciplineID: ns.DisciplineID,
		InstructorID: ns.InstructorID,
		Weekday:      *ns.Weekday,
		StartTime:    ns.StartTime,
		EndTime:      ns.EndTime,
		Location:     ns.Location,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) GetSchedule(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetScheduleByID(ctx, id)
}

func (svc *Service) QuerySchedules(ctx context.Context, filter ScheduleFilter, page core.Pagination, orderings []core.DBOrdering) ([]Schedule, int, error) {
	return svc.repo.QuerySchedules(ctx, filter, page, orderings)
}

func (svc *Service) UpdateSchedule(ctx context.Context, orig Schedule, us UpdateSchedule) (Schedule, error) {
	orig.InstructorID = us.InstructorID
	orig.Weekday = *us.Weekday
	orig.StartTime = us.StartTime
	orig.EndTime = us.EndTime
	orig.Location = us.Location
	orig.Status = us.Status
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSchedule(ctx, orig)
}

func (svc *Service) DeleteSchedule(ctx context.Context, id string) error {
	return svc.repo.DeleteSchedule(ctx, id)
}

// checkTimeRange compares zero padded "HH:MM" strings.
func checkTimeRange(start, end string) error {
	if end <= start {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end time must be after start time"})
	}
	return nil
}

func keep(val, orig string) string {
	if val != "" {
		return val
	}
	return orig
}
