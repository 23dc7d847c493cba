package inmemdb

import (
	"cmp"
	"context"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/matriculation"
)

var matriculationComparers = comparers[matriculation.Matriculation]{
	"start_date":  func(a, b matriculation.Matriculation) int { return compareDate(a.StartDate, b.StartDate) },
	"status":      func(a, b matriculation.Matriculation) int { return cmp.Compare(a.Status, b.Status) },
	"monthly_fee": func(a, b matriculation.Matriculation) int { return a.MonthlyFee.Cmp(b.MonthlyFee) },
	"created_at":  func(a, b matriculation.Matriculation) int { return compareTime(a.CreatedAt, b.CreatedAt) },
}

type matriculationRepository struct {
	db *DB
}

var _ matriculation.Repository = (*matriculationRepository)(nil)

func NewMatriculationRepository(db *DB) matriculation.Repository {
	return &matriculationRepository{db: db}
}

func (repo *matriculationRepository) CheckActiveUniqueness(ctx context.Context, userID, disciplineID string, excludedIDs ...string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, m := range repo.db.matriculations {
		if m.UserID == userID && m.DisciplineID == disciplineID && m.Status != matriculation.StatusInactive &&
			!excluded(m.ID, excludedIDs) {
			return matriculation.ErrAlreadyActive
		}
	}
	return nil
}

func (repo *matriculationRepository) CreateMatriculation(ctx context.Context, m matriculation.Matriculation) (matriculation.Matriculation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m.ID = newID()
	repo.db.matriculations[m.ID] = &m
	return m, nil
}

func (repo *matriculationRepository) GetMatriculationByID(ctx context.Context, id string) (matriculation.Matriculation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.matriculations[id]; ok {
		return *m, nil
	}
	return matriculation.Matriculation{}, matriculation.ErrNotFound
}

func (repo *matriculationRepository) QueryMatriculations(ctx context.Context, filter matriculation.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]matriculation.Matriculation, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var taught set
	if filter.InstructorID != "" {
		taught = repo.db.taughtBy(filter.InstructorID)
	}

	matriculations := make([]matriculation.Matriculation, 0)
	for _, m := range repo.db.matriculations {
		if filter.UserID != "" && m.UserID != filter.UserID {
			continue
		}
		if filter.DisciplineID != "" && m.DisciplineID != filter.DisciplineID {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if taught != nil && !taught.has(m.DisciplineID) {
			continue
		}
		matriculations = append(matriculations, *m)
	}
	sortItems(matriculations, orderings, matriculationComparers, func(a, b matriculation.Matriculation) int {
		if c := compareDate(b.StartDate, a.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(matriculations, page), len(matriculations), nil
}

func (repo *matriculationRepository) UpdateMatriculation(ctx context.Context, m matriculation.Matriculation) (matriculation.Matriculation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.matriculations[m.ID]; !ok {
		return matriculation.Matriculation{}, matriculation.ErrNotFound
	}
	repo.db.matriculations[m.ID] = &m
	return m, nil
}

func (repo *matriculationRepository) DeleteMatriculation(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.matriculations[id]; !ok {
		return matriculation.ErrNotFound
	}
	delete(repo.db.matriculations, id)
	return nil
}
