package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/training"
)

type trainingRepository struct {
	db *sqlx.DB
}

var _ training.Repository = (*trainingRepository)(nil)

func NewTrainingRepository(db *sqlx.DB) training.Repository {
	return &trainingRepository{db: db}
}

func (repo *trainingRepository) CreateSchedule(ctx context.Context, s training.Schedule) (training.Schedule, error) {
	var created training.Schedule
	err := insertReturning(ctx, repo.db, &created, "training_schedules", scheduleValues(s, true))
	return created, err
}

func (repo *trainingRepository) GetScheduleByID(ctx context.Context, id string) (training.Schedule, error) {
	var s training.Schedule
	err := getOne(ctx, repo.db, &s, training.ErrScheduleNotFound,
		psql.Select("*").From("training_schedules").Where(sq.Eq{"id": id}))
	return s, err
}

func (repo *trainingRepository) QuerySchedules(ctx context.Context, filter training.ScheduleFilter, page core.Pagination, orderings []core.DBOrdering) ([]training.Schedule, int, error) {
	where := sq.And{}
	if filter.DisciplineID != "" {
		where = append(where, sq.Eq{"discipline_id": filter.DisciplineID})
	}
	if filter.InstructorID != "" {
		where = append(where, sq.Eq{"instructor_id": filter.InstructorID})
	}
	if filter.Weekday != nil {
		where = append(where, sq.Eq{"weekday": *filter.Weekday})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}

	schedules := make([]training.Schedule, 0)
	count, err := selectPage(ctx, repo.db, &schedules, "training_schedules", where, page, orderings, "weekday", "start_time")
	return schedules, count, err
}

func (repo *trainingRepository) UpdateSchedule(ctx context.Context, s training.Schedule) (training.Schedule, error) {
	var updated training.Schedule
	err := updateReturning(ctx, repo.db, &updated, training.ErrScheduleNotFound, "training_schedules", s.ID, scheduleValues(s, false))
	return updated, err
}

func (repo *trainingRepository) DeleteSchedule(ctx context.Context, id string) error {
	return exec(ctx, repo.db, training.ErrScheduleNotFound, psql.Delete("training_schedules").Where(sq.Eq{"id": id}))
}

func scheduleValues(s training.Schedule, create bool) map[string]interface{} {
	values := map[string]interface{}{
		"instructor_id": s.InstructorID,
		"weekday":       s.Weekday,
		"start_time":    s.StartTime,
		"end_time":      s.EndTime,
		"location":      s.Location,
		"status":        s.Status,
		"updated_at":    s.UpdatedAt,
	}
	if create {
		values["discipline_id"] = s.DisciplineID
		values["created_at"] = s.CreatedAt
	}
	return values
}

func (repo *trainingRepository) CreateSession(ctx context.Context, s training.Session) (training.Session, error) {
	var created training.Session
	err := insertReturning(ctx, repo.db, &created, "sessions", map[string]interface{}{
		"schedule_id":   s.ScheduleID,
		"discipline_id": s.DisciplineID,
		"instructor_id": s.InstructorID,
		"date":          s.Date,
		"start_time":    s.StartTime,
		"end_time":      s.EndTime,
		"notes":         s.Notes,
		"created_at":    s.CreatedAt,
		"updated_at":    s.UpdatedAt,
	})
	return created, err
}

func (repo *trainingRepository) GetSessionByID(ctx context.Context, id string) (training.Session, error) {
	var s training.Session
	err := getOne(ctx, repo.db, &s, training.ErrSessionNotFound, psql.Select("*").From("sessions").Where(sq.Eq{"id": id}))
	return s, err
}

func (repo *trainingRepository) QuerySessions(ctx context.Context, filter training.SessionFilter, page core.Pagination, orderings []core.DBOrdering) ([]training.Session, int, error) {
	where := sq.And{}
	if filter.ScheduleID != "" {
		where = append(where, sq.Eq{"schedule_id": filter.ScheduleID})
	}
	if filter.DisciplineID != "" {
		where = append(where, sq.Eq{"discipline_id": filter.DisciplineID})
	}
	if filter.InstructorID != "" {
		where = append(where, sq.Eq{"instructor_id": filter.InstructorID})
	}
	where = append(where, dateRange("date", filter.From, filter.To)...)

	sessions := make([]training.Session, 0)
	count, err := selectPage(ctx, repo.db, &sessions, "sessions", where, page, orderings, "date DESC", "start_time")
	return sessions, count, err
}

func (repo *trainingRepository) UpdateSession(ctx context.Context, s training.Session) (training.Session, error) {
	var updated training.Session
	err := updateReturning(ctx, repo.db, &updated, training.ErrSessionNotFound, "sessions", s.ID, map[string]interface{}{
		"instructor_id": s.InstructorID,
		"date":          s.Date,
		"start_time":    s.StartTime,
		"end_time":      s.EndTime,
		"notes":         s.Notes,
		"updated_at":    s.UpdatedAt,
	})
	return updated, err
}

func (repo *trainingRepository) DeleteSession(ctx context.Context, id string) error {
	return exec(ctx, repo.db, training.ErrSessionNotFound, psql.Delete("sessions").Where(sq.Eq{"id": id}))
}

func (repo *trainingRepository) UpsertAttendance(ctx context.Context, a training.Attendance) error {
	err := exec(ctx, repo.db, nil, psql.Insert("attendance").
		Columns("session_id", "user_id", "present", "note", "recorded_at").
		Values(a.SessionID, a.UserID, a.Present, a.Note, a.RecordedAt).
		Suffix("ON CONFLICT (session_id, user_id) DO UPDATE SET "+
			"present = EXCLUDED.present, note = EXCLUDED.note, recorded_at = EXCLUDED.recorded_at"))
	if isPQError(err, foreignKeyViolation) {
		return training.ErrSessionNotFound
	}
	return err
}

func (repo *trainingRepository) SessionAttendance(ctx context.Context, sessionID string) ([]training.Attendance, error) {
	query, args, err := psql.Select("*").From("attendance").Where(sq.Eq{"session_id": sessionID}).OrderBy("user_id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building attendance query")
	}
	rows := make([]training.Attendance, 0)
	err = sqlx.SelectContext(ctx, repo.db, &rows, query, args...)
	return rows, err
}

func (repo *trainingRepository) CreateAbsence(ctx context.Context, a training.DailyAbsence) (training.DailyAbsence, error) {
	var created training.DailyAbsence
	err := insertReturning(ctx, repo.db, &created, "daily_absences", map[string]interface{}{
		"user_id":       a.UserID,
		"discipline_id": a.DisciplineID,
		"date":          a.Date,
		"reason":        a.Reason,
		"justified":     a.Justified,
		"created_at":    a.CreatedAt,
		"updated_at":    a.UpdatedAt,
	})
	return created, err
}

func (repo *trainingRepository) GetAbsenceByID(ctx context.Context, id string) (training.DailyAbsence, error) {
	var a training.DailyAbsence
	err := getOne(ctx, repo.db, &a, training.ErrAbsenceNotFound,
		psql.Select("*").From("daily_absences").Where(sq.Eq{"id": id}))
	return a, err
}

func (repo *trainingRepository) QueryAbsences(ctx context.Context, filter training.AbsenceFilter, page core.Pagination, orderings []core.DBOrdering) ([]training.DailyAbsence, int, error) {
	where := sq.And{}
	if filter.UserID != "" {
		where = append(where, sq.Eq{"user_id": filter.UserID})
	}
	if filter.DisciplineID != "" {
		where = append(where, sq.Eq{"discipline_id": filter.DisciplineID})
	}
	if filter.Justified != nil {
		where = append(where, sq.Eq{"justified": *filter.Justified})
	}
	where = append(where, dateRange("date", filter.From, filter.To)...)

	absences := make([]training.DailyAbsence, 0)
	count, err := selectPage(ctx, repo.db, &absences, "daily_absences", where, page, orderings, "date DESC", "id")
	return absences, count, err
}

func (repo *trainingRepository) UpdateAbsence(ctx context.Context, a training.DailyAbsence) (training.DailyAbsence, error) {
	var updated training.DailyAbsence
	err := updateReturning(ctx, repo.db, &updated, training.ErrAbsenceNotFound, "daily_absences", a.ID, map[string]interface{}{
		"date":       a.Date,
		"reason":     a.Reason,
		"justified":  a.Justified,
		"updated_at": a.UpdatedAt,
	})
	return updated, err
}

func (repo *trainingRepository) DeleteAbsence(ctx context.Context, id string) error {
	return exec(ctx, repo.db, training.ErrAbsenceNotFound, psql.Delete("daily_absences").Where(sq.Eq{"id": id}))
}

func dateRange(col string, from, to core.Date) sq.And {
	var conds sq.And
	if from.Valid() {
		conds = append(conds, sq.GtOrEq{col: from})
	}
	if to.Valid() {
		conds = append(conds, sq.LtOrEq{col: to})
	}
	return conds
}
