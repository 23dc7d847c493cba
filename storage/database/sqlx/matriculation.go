package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/matriculation"
)

type matriculationRepository struct {
	db *sqlx.DB
}

var _ matriculation.Repository = (*matriculationRepository)(nil)

func NewMatriculationRepository(db *sqlx.DB) matriculation.Repository {
	return &matriculationRepository{db: db}
}

func (repo *matriculationRepository) CheckActiveUniqueness(ctx context.Context, userID, disciplineID string, excludedIDs ...string) error {
	found, err := exists(ctx, repo.db, psql.Select("1").From("matriculations").Where(sq.And{
		sq.Eq{"user_id": userID, "discipline_id": disciplineID},
		sq.NotEq{"status": matriculation.StatusInactive},
		notExcluded(excludedIDs),
	}))
	if err != nil {
		return errors.Wrap(err, "checking matriculation")
	}
	if found {
		return matriculation.ErrAlreadyActive
	}
	return nil
}

func (repo *matriculationRepository) CreateMatriculation(ctx context.Context, m matriculation.Matriculation) (matriculation.Matriculation, error) {
	var created matriculation.Matriculation
	err := insertReturning(ctx, repo.db, &created, "matriculations", map[string]interface{}{
		"user_id":       m.UserID,
		"discipline_id": m.DisciplineID,
		"status":        m.Status,
		"rank":          m.Rank,
		"monthly_fee":   m.MonthlyFee,
		"start_date":    m.StartDate,
		"end_date":      m.EndDate,
		"created_at":    m.CreatedAt,
		"updated_at":    m.UpdatedAt,
	})
	if isPQError(err, uniqueViolation) {
		return matriculation.Matriculation{}, matriculation.ErrAlreadyActive
	}
	return created, err
}

func (repo *matriculationRepository) GetMatriculationByID(ctx context.Context, id string) (matriculation.Matriculation, error) {
	var m matriculation.Matriculation
	err := getOne(ctx, repo.db, &m, matriculation.ErrNotFound,
		psql.Select("*").From("matriculations").Where(sq.Eq{"id": id}))
	return m, err
}

func (repo *matriculationRepository) QueryMatriculations(ctx context.Context, filter matriculation.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]matriculation.Matriculation, int, error) {
	where := sq.And{}
	if filter.UserID != "" {
		where = append(where, sq.Eq{"user_id": filter.UserID})
	}
	if filter.DisciplineID != "" {
		where = append(where, sq.Eq{"discipline_id": filter.DisciplineID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	if filter.InstructorID != "" {
		where = append(where, sq.Expr(
			"discipline_id IN (SELECT discipline_id FROM training_schedules WHERE instructor_id = ?)", filter.InstructorID,
		))
	}

	matriculations := make([]matriculation.Matriculation, 0)
	count, err := selectPage(ctx, repo.db, &matriculations, "matriculations", where, page, orderings, "start_date DESC", "id")
	return matriculations, count, err
}

func (repo *matriculationRepository) UpdateMatriculation(ctx context.Context, m matriculation.Matriculation) (matriculation.Matriculation, error) {
	var updated matriculation.Matriculation
	err := updateReturning(ctx, repo.db, &updated, matriculation.ErrNotFound, "matriculations", m.ID, map[string]interface{}{
		"status":      m.Status,
		"rank":        m.Rank,
		"monthly_fee": m.MonthlyFee,
		"start_date":  m.StartDate,
		"end_date":    m.EndDate,
		"updated_at":  m.UpdatedAt,
	})
	if isPQError(err, uniqueViolation) {
		return matriculation.Matriculation{}, matriculation.ErrAlreadyActive
	}
	return updated, err
}

func (repo *matriculationRepository) DeleteMatriculation(ctx context.Context, id string) error {
	return exec(ctx, repo.db, matriculation.ErrNotFound, psql.Delete("matriculations").Where(sq.Eq{"id": id}))
}
