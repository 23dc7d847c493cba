package training

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dojo/core"
)

// DailyAbsence records a practitioner missing a day of training, for one discipline or for all of them.
type DailyAbsence struct {
	ID           string      `json:"id" db:"id"`
	UserID       string      `json:"user_id" db:"user_id"`
	DisciplineID null.String `json:"discipline_id" db:"discipline_id"`
	Date         core.Date   `json:"date" db:"date"`
	Reason       string      `json:"reason" db:"reason"`
	Justified    bool        `json:"justified" db:"justified"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

type NewAbsence struct {
	UserID       string    `json:"user_id" validate:"required"`
	DisciplineID string    `json:"discipline_id"`
	Date         core.Date `json:"date"`
	Reason       string    `json:"reason" validate:"required,max=500"`
	Justified    bool      `json:"justified"`
}

func (na *NewAbsence) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	na.Reason = core.CleanString(na.Reason)
	na.DisciplineID = core.CleanString(na.DisciplineID)

	if err := validate.Struct(na); err != nil {
		return err
	}
	if !na.Date.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "this field is required"})
	}
	if err := svc.checkUser(ctx, "user_id", na.UserID); err != nil {
		return err
	}
	return svc.checkRefs(ctx, na.DisciplineID, "")
}

// UpdateAbsence defines what may change on a DailyAbsence. Empty fields are kept.
type UpdateAbsence struct {
	Date      core.Date `json:"date"`
	Reason    string    `json:"reason" validate:"max=500"`
	Justified *bool     `json:"justified"`
}

func (ua *UpdateAbsence) Validate(orig DailyAbsence, validate *validator.Validate) error {
	ua.Reason = keep(core.CleanString(ua.Reason), orig.Reason)
	if !ua.Date.Valid() {
		ua.Date = orig.Date
	}
	if ua.Justified == nil {
		j := orig.Justified
		ua.Justified = &j
	}
	return validate.Struct(ua)
}

type AbsenceFilter struct {
	UserID       string    `query:"user_id"`
	DisciplineID string    `query:"discipline_id"`
	From         core.Date `query:"from"`
	To           core.Date `query:"to"`
	Justified    *bool     `query:"-"`
}

func (svc *Service) CreateAbsence(ctx context.Context, na NewAbsence) (DailyAbsence, error) {
	now := time.Now().UTC()
	a := DailyAbsence{
		UserID:    na.UserID,
		Date:      na.Date,
		Reason:    na.Reason,
		Justified: na.Justified,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if na.DisciplineID != "" {
		a.DisciplineID = null.StringFrom(na.DisciplineID)
	}
	return svc.repo.CreateAbsence(ctx, a)
}

func (svc *Service) GetAbsence(ctx context.Context, id string) (DailyAbsence, error) {
	return svc.repo.GetAbsenceByID(ctx, id)
}

func (svc *Service) QueryAbsences(ctx context.Context, filter AbsenceFilter, page core.Pagination, orderings []core.DBOrdering) ([]DailyAbsence, int, error) {
	return svc.repo.QueryAbsences(ctx, filter, page, orderings)
}

func (svc *Service) UpdateAbsence(ctx context.Context, orig DailyAbsence, ua UpdateAbsence) (DailyAbsence, error) {
	orig.Date = ua.Date
	orig.Reason = ua.Reason
	orig.Justified = *ua.Justified
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAbsence(ctx, orig)
}

func (svc *Service) DeleteAbsence(ctx context.Context, id string) error {
	return svc.repo.DeleteAbsence(ctx, id)
}
