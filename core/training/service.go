// Package training schedules classes and keeps track of who showed up.
package training

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/user"
)

var (
	ErrScheduleNotFound = core.NewNotFoundError("training schedule not found")
	ErrSessionNotFound  = core.NewNotFoundError("training session not found")
	ErrAbsenceNotFound  = core.NewNotFoundError("absence not found")
)

type Repository interface {
	CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
	GetScheduleByID(ctx context.Context, id string) (Schedule, error)
	QuerySchedules(ctx context.Context, filter ScheduleFilter, page core.Pagination, orderings []core.DBOrdering) ([]Schedule, int, error)
	UpdateSchedule(ctx context.Context, s Schedule) (Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error

	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSessionByID(ctx context.Context, id string) (Session, error)
	QuerySessions(ctx context.Context, filter SessionFilter, page core.Pagination, orderings []core.DBOrdering) ([]Session, int, error)
	UpdateSession(ctx context.Context, s Session) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	UpsertAttendance(ctx context.Context, a Attendance) error
	SessionAttendance(ctx context.Context, sessionID string) ([]Attendance, error)

	CreateAbsence(ctx context.Context, a DailyAbsence) (DailyAbsence, error)
	GetAbsenceByID(ctx context.Context, id string) (DailyAbsence, error)
	QueryAbsences(ctx context.Context, filter AbsenceFilter, page core.Pagination, orderings []core.DBOrdering) ([]DailyAbsence, int, error)
	UpdateAbsence(ctx context.Context, a DailyAbsence) (DailyAbsence, error)
	DeleteAbsence(ctx context.Context, id string) error
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

// checkRefs turns unknown discipline or instructor IDs into field errors. Empty IDs are skipped.
func (svc *Service) checkRefs(ctx context.Context, disciplineID, instructorID string) error {
	if disciplineID != "" {
		if _, err := svc.disciplines.GetByID(ctx, disciplineID); err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(nil, core.FieldError{Field: "discipline_id", Error: "unknown discipline"})
			}
			return errors.Wrap(err, "finding discipline")
		}
	}
	return svc.checkUser(ctx, "instructor_id", instructorID)
}

func (svc *Service) checkUser(ctx context.Context, field, id string) error {
	if id == "" {
		return nil
	}
	if _, err := svc.users.GetByID(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: "unknown user"})
		}
		return errors.Wrap(err, "finding user")
	}
	return nil
}
