// Package sqlxrepos implements the repositories on postgres with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// selectPage counts the rows matching where, then loads the requested page into dest.
// A zero PageSize loads every row.
func selectPage(
	ctx context.Context, db sqlx.QueryerContext, dest interface{}, table string, where sq.Sqlizer,
	page core.Pagination, orderings []core.DBOrdering, defaultOrder ...string,
) (int, error) {
	countSQL, args, err := psql.Select("count(*)").From(table).Where(where).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building count query")
	}
	var count int
	if err = sqlx.GetContext(ctx, db, &count, countSQL, args...); err != nil {
		return 0, errors.Wrapf(err, "counting %s", table)
	}

	stmt := psql.Select("*").From(table).Where(where)
	for _, ord := range orderings {
		stmt = stmt.OrderBy(ord.String())
	}
	stmt = stmt.OrderBy(defaultOrder...)
	if page.PageSize > 0 {
		stmt = stmt.Limit(page.Limit()).Offset(page.Offset())
	}

	query, args, err := stmt.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building select query")
	}
	if err = sqlx.SelectContext(ctx, db, dest, query, args...); err != nil {
		return 0, errors.Wrapf(err, "selecting %s", table)
	}
	return count, nil
}

// getOne loads a single row into dest, or returns notFound.
func getOne(ctx context.Context, db sqlx.QueryerContext, dest interface{}, notFound error, stmt sq.SelectBuilder) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return errors.Wrap(err, "building select query")
	}
	if err = sqlx.GetContext(ctx, db, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}
		return err
	}
	return nil
}

// exec runs a statement and returns notFound when it touched no row.
func exec(ctx context.Context, db sqlx.ExecerContext, notFound error, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return errors.Wrap(err, "building statement")
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if notFound == nil {
		return nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// insertReturning inserts the values and scans the whole new row into dest.
func insertReturning(ctx context.Context, db sqlx.QueryerContext, dest interface{}, table string, values map[string]interface{}) error {
	query, args, err := psql.Insert(table).SetMap(values).Suffix("RETURNING *").ToSql()
	if err != nil {
		return errors.Wrap(err, "building insert")
	}
	return sqlx.GetContext(ctx, db, dest, query, args...)
}

// updateReturning updates the row with the given id and scans it back into dest.
func updateReturning(
	ctx context.Context, db sqlx.QueryerContext, dest interface{}, notFound error, table, id string, values map[string]interface{},
) error {
	query, args, err := psql.Update(table).SetMap(values).Where(sq.Eq{"id": id}).Suffix("RETURNING *").ToSql()
	if err != nil {
		return errors.Wrap(err, "building update")
	}
	if err = sqlx.GetContext(ctx, db, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}
		return err
	}
	return nil
}

func notExcluded(excludedIDs []string) sq.Sqlizer {
	if len(excludedIDs) == 0 {
		return sq.Expr("TRUE")
	}
	return sq.NotEq{"id": excludedIDs}
}

func ilike(search string, cols ...string) sq.Sqlizer {
	or := make(sq.Or, 0, len(cols))
	for _, col := range cols {
		or = append(or, sq.ILike{col: "%" + search + "%"})
	}
	return or
}

func isPQError(err error, code string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && string(pqErr.Code) == code
}

// exists reports whether the select returns at least one row.
func exists(ctx context.Context, db sqlx.QueryerContext, stmt sq.SelectBuilder) (bool, error) {
	query, args, err := stmt.Limit(1).ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building exists query")
	}
	var one int
	if err = sqlx.GetContext(ctx, db, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
