package training

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dojo/core"
)

// Session is one occurrence of a class, usually generated from a Schedule.
type Session struct {
	ID           string      `json:"id" db:"id"`
	ScheduleID   null.String `json:"schedule_id" db:"schedule_id"`
	DisciplineID string      `json:"discipline_id" db:"discipline_id"`
	InstructorID string      `json:"instructor_id" db:"instructor_id"`
	Date         core.Date   `json:"date" db:"date"`
	StartTime    string      `json:"start_time" db:"start_time"`
	EndTime      string      `json:"end_time" db:"end_time"`
	Notes        string      `json:"notes" db:"notes"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

type Attendance struct {
	SessionID  string    `json:"session_id" db:"session_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Present    bool      `json:"present" db:"present"`
	Note       string    `json:"note" db:"note"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"` // UTC
}

// NewSession creates a session. With a ScheduleID, the empty fields are taken from the schedule.
type NewSession struct {
	ScheduleID   string    `json:"schedule_id"`
	DisciplineID string    `json:"discipline_id"`
	InstructorID string    `json:"instructor_id"`
	Date         core.Date `json:"date"`
	StartTime    string    `json:"start_time" validate:"omitempty,hhmm"`
	EndTime      string    `json:"end_time" validate:"omitempty,hhmm"`
	Notes        string    `json:"notes" validate:"max=2000"`
}

func (ns *NewSession) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Notes = core.CleanString(ns.Notes)

	if ns.ScheduleID != "" {
		sch, err := svc.repo.GetScheduleByID(ctx, ns.ScheduleID)
		if err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: "unknown schedule"})
			}
			return errors.Wrap(err, "finding schedule")
		}
		ns.DisciplineID = keep(ns.DisciplineID, sch.DisciplineID)
		ns.InstructorID = keep(ns.InstructorID, sch.InstructorID)
		ns.StartTime = keep(ns.StartTime, sch.StartTime)
		ns.EndTime = keep(ns.EndTime, sch.EndTime)
	}

	if err := validate.Struct(ns); err != nil {
		return err
	}

	var flds []core.FieldError
	for fld, val := range map[string]string{
		"discipline_id": ns.DisciplineID,
		"instructor_id": ns.InstructorID,
		"start_time":    ns.StartTime,
		"end_time":      ns.EndTime,
	} {
		if val == "" {
			flds = append(flds, core.FieldError{Field: fld, Error: "this field is required"})
		}
	}
	if !ns.Date.Valid() {
		flds = append(flds, core.FieldError{Field: "date", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}

	if err := checkTimeRange(ns.StartTime, ns.EndTime); err != nil {
		return err
	}
	return svc.checkRefs(ctx, ns.DisciplineID, ns.InstructorID)
}

// UpdateSession defines what may change on a Session. Empty fields are kept.
type UpdateSession struct {
	InstructorID string    `json:"instructor_id"`
	Date         core.Date `json:"date"`
	StartTime    string    `json:"start_time" validate:"omitempty,hhmm"`
	EndTime      string    `json:"end_time" validate:"omitempty,hhmm"`
	Notes        string    `json:"notes" validate:"max=2000"`
}

func (us *UpdateSession) Validate(ctx context.Context, orig Session, validate *validator.Validate, svc *Service) error {
	us.InstructorID = keep(core.CleanString(us.InstructorID), orig.InstructorID)
	us.StartTime = keep(core.CleanString(us.StartTime), orig.StartTime)
	us.EndTime = keep(core.CleanString(us.EndTime), orig.EndTime)
	us.Notes = keep(core.CleanString(us.Notes), orig.Notes)
	if !us.Date.Valid() {
		us.Date = orig.Date
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	if err := checkTimeRange(us.StartTime, us.EndTime); err != nil {
		return err
	}
	return svc.checkRefs(ctx, "", us.InstructorID)
}

type SessionFilter struct {
	ScheduleID   string    `query:"schedule_id"`
	DisciplineID string    `query:"discipline_id"`
	InstructorID string    `query:"instructor_id"`
	From         core.Date `query:"from"`
	To           core.Date `query:"to"`
}

// AttendanceEntry is one line of an attendance sheet.
type AttendanceEntry struct {
	UserID  string `json:"user_id" validate:"required"`
	Present bool   `json:"present"`
	Note    string `json:"note" validate:"max=500"`
}

type AttendanceSheet struct {
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

func (svc *Service) CreateSession(ctx context.Context, ns NewSession) (Session, error) {
	now := time.Now().UTC()
	s := Session{
		DisciplineID: ns.DisciplineID,
		InstructorID: ns.InstructorID,
		Date:         ns.Date,
		StartTime:    ns.StartTime,
		EndTime:      ns.EndTime,
		Notes:        ns.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if ns.ScheduleID != "" {
		s.ScheduleID = null.StringFrom(ns.ScheduleID)
	}
	return svc.repo.CreateSession(ctx, s)
}

func (svc *Service) GetSession(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *Service) QuerySessions(ctx context.Context, filter SessionFilter, page core.Pagination, orderings []core.DBOrdering) ([]Session, int, error) {
	return svc.repo.QuerySessions(ctx, filter, page, orderings)
}

func (svc *Service) UpdateSession(ctx context.Context, orig Session, us UpdateSession) (Session, error) {
	orig.InstructorID = us.InstructorID
	orig.Date = us.Date
	orig.StartTime = us.StartTime
	orig.EndTime = us.EndTime
	orig.Notes = us.Notes
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSession(ctx, orig)
}

func (svc *Service) DeleteSession(ctx context.Context, id string) error {
	return svc.repo.DeleteSession(ctx, id)
}

func (svc *Service) SessionAttendance(ctx context.Context, sessionID string) ([]Attendance, error) {
	if _, err := svc.repo.GetSessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return svc.repo.SessionAttendance(ctx, sessionID)
}

// RecordAttendance saves every entry independently and reports each one by user ID.
// When a user appears twice, the last entry wins.
func (svc *Service) RecordAttendance(ctx context.Context, sessionID string, sheet AttendanceSheet) (core.BatchResult, error) {
	if _, err := svc.repo.GetSessionByID(ctx, sessionID); err != nil {
		return core.BatchResult{}, err
	}

	entries := make(map[string]AttendanceEntry, len(sheet.Entries))
	ids := make([]string, 0, len(sheet.Entries))
	for _, e := range sheet.Entries {
		if _, dup := entries[e.UserID]; !dup {
			ids = append(ids, e.UserID)
		}
		entries[e.UserID] = e
	}

	now := time.Now().UTC()
	return core.RunBatch(ctx, ids, func(ctx context.Context, userID string) error {
		if _, err := svc.users.GetByID(ctx, userID); err != nil {
			return err
		}
		e := entries[userID]
		return svc.repo.UpsertAttendance(ctx, Attendance{
			SessionID:  sessionID,
			UserID:     userID,
			Present:    e.Present,
			Note:       core.CleanString(e.Note),
			RecordedAt: now,
		})
	}), nil
}
