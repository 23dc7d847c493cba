package inmemdb

import (
	"cmp"
	"context"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/matriculation"
)

var disciplineComparers = comparers[discipline.Discipline]{
	"name":       func(a, b discipline.Discipline) int { return compareFold(a.Name, b.Name) },
	"status":     func(a, b discipline.Discipline) int { return cmp.Compare(a.Status, b.Status) },
	"created_at": func(a, b discipline.Discipline) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type disciplineRepository struct {
	db *DB
}

var _ discipline.Repository = (*disciplineRepository)(nil)

func NewDisciplineRepository(db *DB) discipline.Repository {
	return &disciplineRepository{db: db}
}

func (repo *disciplineRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, d := range repo.db.disciplines {
		if compareFold(d.Name, name) == 0 && !excluded(d.ID, excludedIDs) {
			return discipline.ErrNameExists
		}
	}
	return nil
}

func (repo *disciplineRepository) CreateDiscipline(ctx context.Context, d discipline.Discipline) (discipline.Discipline, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	d.ID = newID()
	repo.db.disciplines[d.ID] = &d
	return d, nil
}

func (repo *disciplineRepository) GetDisciplineByID(ctx context.Context, id string) (discipline.Discipline, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if d, ok := repo.db.disciplines[id]; ok {
		return *d, nil
	}
	return discipline.Discipline{}, discipline.ErrNotFound
}

func (repo *disciplineRepository) QueryDisciplines(ctx context.Context, filter discipline.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]discipline.Discipline, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var taught, practiced set
	if filter.InstructorID != "" {
		taught = repo.db.taughtBy(filter.InstructorID)
	}
	if filter.PractitionerID != "" {
		practiced = make(set)
		for _, m := range repo.db.matriculations {
			if m.UserID == filter.PractitionerID && m.Status != matriculation.StatusInactive {
				practiced.add(m.DisciplineID)
			}
		}
	}

	disciplines := make([]discipline.Discipline, 0)
	for _, d := range repo.db.disciplines {
		if filter.Search != "" && !contains(d.Name, filter.Search) && !contains(d.Description, filter.Search) {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if taught != nil && !taught.has(d.ID) {
			continue
		}
		if practiced != nil && !practiced.has(d.ID) {
			continue
		}
		disciplines = append(disciplines, *d)
	}
	sortItems(disciplines, orderings, disciplineComparers, func(a, b discipline.Discipline) int {
		return compareFold(a.Name, b.Name)
	})
	return paginate(disciplines, page), len(disciplines), nil
}

func (repo *disciplineRepository) UpdateDiscipline(ctx context.Context, d discipline.Discipline) (discipline.Discipline, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.disciplines[d.ID]; !ok {
		return discipline.Discipline{}, discipline.ErrNotFound
	}
	repo.db.disciplines[d.ID] = &d
	return d, nil
}

func (repo *disciplineRepository) DeleteDiscipline(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.disciplines[id]; !ok {
		return discipline.ErrNotFound
	}
	delete(repo.db.disciplines, id)
	for sid, s := range repo.db.schedules {
		if s.DisciplineID == id {
			delete(repo.db.schedules, sid)
		}
	}
	for sid, s := range repo.db.sessions {
		if s.DisciplineID == id {
			delete(repo.db.sessions, sid)
			delete(repo.db.attendance, sid)
		}
	}
	for mid, m := range repo.db.matriculations {
		if m.DisciplineID == id {
			delete(repo.db.matriculations, mid)
		}
	}
	for _, a := range repo.db.absences {
		if a.DisciplineID.Valid && a.DisciplineID.String == id {
			a.DisciplineID.Valid = false
		}
	}
	return nil
}

// taughtBy lists the disciplines an instructor teaches. Callers hold the lock.
func (db *DB) taughtBy(instructorID string) set {
	taught := make(set)
	for _, s := range db.schedules {
		if s.InstructorID == instructorID {
			taught.add(s.DisciplineID)
		}
	}
	return taught
}
