package inmemdb

import (
	"cmp"
	"context"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/training"
)

var (
	scheduleComparers = comparers[training.Schedule]{
		"weekday":    func(a, b training.Schedule) int { return cmp.Compare(a.Weekday, b.Weekday) },
		"start_time": func(a, b training.Schedule) int { return cmp.Compare(a.StartTime, b.StartTime) },
		"created_at": func(a, b training.Schedule) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	}
	sessionComparers = comparers[training.Session]{
		"date":       func(a, b training.Session) int { return compareDate(a.Date, b.Date) },
		"start_time": func(a, b training.Session) int { return cmp.Compare(a.StartTime, b.StartTime) },
		"created_at": func(a, b training.Session) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	}
	absenceComparers = comparers[training.DailyAbsence]{
		"date":       func(a, b training.DailyAbsence) int { return compareDate(a.Date, b.Date) },
		"created_at": func(a, b training.DailyAbsence) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	}
)

type trainingRepository struct {
	db *DB
}

var _ training.Repository = (*trainingRepository)(nil)

func NewTrainingRepository(db *DB) training.Repository {
	return &trainingRepository{db: db}
}

func (repo *trainingRepository) CreateSchedule(ctx context.Context, s training.Schedule) (training.Schedule, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = newID()
	repo.db.schedules[s.ID] = &s
	return s, nil
}

func (repo *trainingRepository) GetScheduleByID(ctx context.Context, id string) (training.Schedule, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.schedules[id]; ok {
		return *s, nil
	}
	return training.Schedule{}, training.ErrScheduleNotFound
}

func (repo *trainingRepository) QuerySchedules(ctx context.Context, filter training.ScheduleFilter, page core.Pagination, orderings []core.DBOrdering) ([]training.Schedule, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schedules := make([]training.Schedule, 0)
	for _, s := range repo.db.schedules {
		if filter.DisciplineID != "" && s.DisciplineID != filter.DisciplineID {
			continue
		}
		if filter.InstructorID != "" && s.InstructorID != filter.InstructorID {
			continue
		}
		if filter.Weekday != nil && s.Weekday != *filter.Weekday {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		schedules = append(schedules, *s)
	}
	sortItems(schedules, orderings, scheduleComparers, func(a, b training.Schedule) int {
		if c := cmp.Compare(a.Weekday, b.Weekday); c != 0 {
			return c
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return paginate(schedules, page), len(schedules), nil
}

func (repo *trainingRepository) UpdateSchedule(ctx context.Context, s training.Schedule) (training.Schedule, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.schedules[s.ID]; !ok {
		return training.Schedule{}, training.ErrScheduleNotFound
	}
	repo.db.schedules[s.ID] = &s
	return s, nil
}

func (repo *trainingRepository) DeleteSchedule(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.schedules[id]; !ok {
		return training.ErrScheduleNotFound
	}
	delete(repo.db.schedules, id)
	for _, s := range repo.db.sessions {
		if s.ScheduleID.Valid && s.ScheduleID.String == id {
			s.ScheduleID.Valid = false
		}
	}
	return nil
}

func (repo *trainingRepository) CreateSession(ctx context.Context, s training.Session) (training.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = newID()
	repo.db.sessions[s.ID] = &s
	return s, nil
}

func (repo *trainingRepository) GetSessionByID(ctx context.Context, id string) (training.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.sessions[id]; ok {
		return *s, nil
	}
	return training.Session{}, training.ErrSessionNotFound
}

func (repo *trainingRepository) QuerySessions(ctx context.Context, filter training.SessionFilter, page core.Pagination, orderings []core.DBOrdering) ([]training.Session, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]training.Session, 0)
	for _, s := range repo.db.sessions {
		if filter.ScheduleID != "" && s.ScheduleID.String != filter.ScheduleID {
			continue
		}
		if filter.DisciplineID != "" && s.DisciplineID != filter.DisciplineID {
			continue
		}
		if filter.InstructorID != "" && s.InstructorID != filter.InstructorID {
			continue
		}
		if !inRange(s.Date, filter.From, filter.To) {
			continue
		}
		sessions = append(sessions, *s)
	}
	sortItems(sessions, orderings, sessionComparers, func(a, b training.Session) int {
		if c := compareDate(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return paginate(sessions, page), len(sessions), nil
}

func (repo *trainingRepository) UpdateSession(ctx context.Context, s training.Session) (training.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[s.ID]; !ok {
		return training.Session{}, training.ErrSessionNotFound
	}
	repo.db.sessions[s.ID] = &s
	return s, nil
}

func (repo *trainingRepository) DeleteSession(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[id]; !ok {
		return training.ErrSessionNotFound
	}
	delete(repo.db.sessions, id)
	delete(repo.db.attendance, id)
	return nil
}

func (repo *trainingRepository) UpsertAttendance(ctx context.Context, a training.Attendance) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[a.SessionID]; !ok {
		return training.ErrSessionNotFound
	}
	rows, ok := repo.db.attendance[a.SessionID]
	if !ok {
		rows = make(map[string]*training.Attendance)
		repo.db.attendance[a.SessionID] = rows
	}
	rows[a.UserID] = &a
	return nil
}

func (repo *trainingRepository) SessionAttendance(ctx context.Context, sessionID string) ([]training.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := make([]training.Attendance, 0, len(repo.db.attendance[sessionID]))
	for _, a := range repo.db.attendance[sessionID] {
		rows = append(rows, *a)
	}
	sortItems(rows, nil, nil, func(a, b training.Attendance) int { return cmp.Compare(a.UserID, b.UserID) })
	return rows, nil
}

func (repo *trainingRepository) CreateAbsence(ctx context.Context, a training.DailyAbsence) (training.DailyAbsence, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.ID = newID()
	repo.db.absences[a.ID] = &a
	return a, nil
}

func (repo *trainingRepository) GetAbsenceByID(ctx context.Context, id string) (training.DailyAbsence, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.absences[id]; ok {
		return *a, nil
	}
	return training.DailyAbsence{}, training.ErrAbsenceNotFound
}

func (repo *trainingRepository) QueryAbsences(ctx context.Context, filter training.AbsenceFilter, page core.Pagination, orderings []core.DBOrdering) ([]training.DailyAbsence, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	absences := make([]training.DailyAbsence, 0)
	for _, a := range repo.db.absences {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.DisciplineID != "" && a.DisciplineID.String != filter.DisciplineID {
			continue
		}
		if filter.Justified != nil && a.Justified != *filter.Justified {
			continue
		}
		if !inRange(a.Date, filter.From, filter.To) {
			continue
		}
		absences = append(absences, *a)
	}
	sortItems(absences, orderings, absenceComparers, func(a, b training.DailyAbsence) int {
		if c := compareDate(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(absences, page), len(absences), nil
}

func (repo *trainingRepository) UpdateAbsence(ctx context.Context, a training.DailyAbsence) (training.DailyAbsence, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.absences[a.ID]; !ok {
		return training.DailyAbsence{}, training.ErrAbsenceNotFound
	}
	repo.db.absences[a.ID] = &a
	return a, nil
}

func (repo *trainingRepository) DeleteAbsence(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.absences[id]; !ok {
		return training.ErrAbsenceNotFound
	}
	delete(repo.db.absences, id)
	return nil
}
