package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/matriculation"
)

type disciplineRepository struct {
	db *sqlx.DB
}

var _ discipline.Repository = (*disciplineRepository)(nil)

func NewDisciplineRepository(db *sqlx.DB) discipline.Repository {
	return &disciplineRepository{db: db}
}

func (repo *disciplineRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...string) error {
	found, err := exists(ctx, repo.db, psql.Select("1").From("disciplines").Where(sq.And{
		sq.Expr("lower(name) = lower(?)", name),
		notExcluded(excludedIDs),
	}))
	if err != nil {
		return errors.Wrap(err, "checking discipline name")
	}
	if found {
		return discipline.ErrNameExists
	}
	return nil
}

func (repo *disciplineRepository) CreateDiscipline(ctx context.Context, d discipline.Discipline) (discipline.Discipline, error) {
	var created discipline.Discipline
	err := insertReturning(ctx, repo.db, &created, "disciplines", map[string]interface{}{
		"name":        d.Name,
		"description": d.Description,
		"image_url":   d.ImageURL,
		"status":      d.Status,
		"created_at":  d.CreatedAt,
		"updated_at":  d.UpdatedAt,
	})
	if isPQError(err, uniqueViolation) {
		return discipline.Discipline{}, discipline.ErrNameExists
	}
	return created, err
}

func (repo *disciplineRepository) GetDisciplineByID(ctx context.Context, id string) (discipline.Discipline, error) {
	var d discipline.Discipline
	err := getOne(ctx, repo.db, &d, discipline.ErrNotFound, psql.Select("*").From("disciplines").Where(sq.Eq{"id": id}))
	return d, err
}

func (repo *disciplineRepository) QueryDisciplines(ctx context.Context, filter discipline.QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]discipline.Discipline, int, error) {
	where := sq.And{}
	if filter.Search != "" {
		where = append(where, ilike(filter.Search, "name", "description"))
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	if filter.InstructorID != "" {
		where = append(where, sq.Expr(
			"id IN (SELECT discipline_id FROM training_schedules WHERE instructor_id = ?)", filter.InstructorID,
		))
	}
	if filter.PractitionerID != "" {
		where = append(where, sq.Expr(
			"id IN (SELECT discipline_id FROM matriculations WHERE user_id = ? AND status <> ?)",
			filter.PractitionerID, matriculation.StatusInactive,
		))
	}

	disciplines := make([]discipline.Discipline, 0)
	count, err := selectPage(ctx, repo.db, &disciplines, "disciplines", where, page, orderings, "lower(name)")
	return disciplines, count, err
}

func (repo *disciplineRepository) UpdateDiscipline(ctx context.Context, d discipline.Discipline) (discipline.Discipline, error) {
	var updated discipline.Discipline
	err := updateReturning(ctx, repo.db, &updated, discipline.ErrNotFound, "disciplines", d.ID, map[string]interface{}{
		"name":        d.Name,
		"description": d.Description,
		"image_url":   d.ImageURL,
		"status":      d.Status,
		"updated_at":  d.UpdatedAt,
	})
	if isPQError(err, uniqueViolation) {
		return discipline.Discipline{}, discipline.ErrNameExists
	}
	return updated, err
}

func (repo *disciplineRepository) DeleteDiscipline(ctx context.Context, id string) error {
	return exec(ctx, repo.db, discipline.ErrNotFound, psql.Delete("disciplines").Where(sq.Eq{"id": id}))
}
