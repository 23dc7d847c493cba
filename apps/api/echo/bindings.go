package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
)

const (
	orderingParam = "ordering"
	pageParam     = "page"
	pageSizeParam = "page_size"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses "ordering=-created_at,name". Fields outside allowed are dropped and the
// remaining ones are renamed to their column.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	var orderings []core.DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	ord.Orderings = core.SafeOrderings(orderings, allowed)
}

func bindPagination(ctx echo.Context) (core.Pagination, error) {
	page, err := intParam(ctx, pageParam)
	if err != nil {
		return core.Pagination{}, err
	}
	size, err := intParam(ctx, pageSizeParam)
	if err != nil {
		return core.Pagination{}, err
	}
	return core.NewPagination(page, size)
}

// bindList binds the filter, the pagination and the ordering of a list endpoint.
func bindList(ctx echo.Context, filter interface{}, allowedOrderings map[string]string) (core.Pagination, []core.DBOrdering, error) {
	if err := ctx.Bind(filter); err != nil {
		return core.Pagination{}, nil, core.NewValidationError(errors.Wrap(err, "binding query filter"))
	}
	page, err := bindPagination(ctx)
	if err != nil {
		return core.Pagination{}, nil, err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, allowedOrderings)
	return page, ordering.Orderings, nil
}

func intParam(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be an integer"})
	}
	return n, nil
}

// optionalIntParam is nil when the parameter is absent.
func optionalIntParam(ctx echo.Context, name string) (*int, error) {
	if ctx.QueryParam(name) == "" {
		return nil, nil
	}
	n, err := intParam(ctx, name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// optionalBoolParam is nil when the parameter is absent.
func optionalBoolParam(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a boolean"})
	}
	return &b, nil
}

func sendPage[T any](ctx echo.Context, items []T, count int) error {
	return ctx.JSON(http.StatusOK, core.NewPage(items, count))
}

// sendBatch answers 200 when every item succeeded and 207 otherwise.
func sendBatch(ctx echo.Context, res core.BatchResult) error {
	code := http.StatusOK
	if !res.AllOK() {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, res)
}
