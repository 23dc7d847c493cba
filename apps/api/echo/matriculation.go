package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/matriculation"
	"github.com/trezcool/dojo/core/user"
)

var matriculationOrderings = map[string]string{
	"start_date":  "start_date",
	"status":      "status",
	"monthly_fee": "monthly_fee",
	"created_at":  "created_at",
}

type matriculationApi struct {
	svc      *matriculation.Service
	users    user.Service
	gate     *gate
	validate *validator.Validate
}

func registerMatriculationAPI(g *echo.Group, jwt echo.MiddlewareFunc, gate *gate, deps ServerDeps) {
	api := matriculationApi{
		svc:      deps.MatriculationSvc,
		users:    deps.UserSvc,
		gate:     gate,
		validate: deps.Validate,
	}

	mg := g.Group("/matriculations", jwt)
	mg.GET("", api.query, gate.any(access.ListMatriculations, access.ViewMatriculation))
	mg.POST("", api.create, gate.any(access.CreateMatriculation))
	mg.GET("/:id", api.retrieve, gate.any(access.ViewMatriculation))
	mg.PUT("/:id", api.update, gate.any(access.UpdateMatriculation))
	mg.DELETE("/:id", api.destroy, gate.any(access.DeleteMatriculation))
}

// scope narrows filter for users who cannot list every matriculation: instructors see
// the disciplines they teach, practitioners their own matriculations.
func (api *matriculationApi) scope(ctx echo.Context, filter *matriculation.QueryFilter) error {
	privs, err := api.gate.privileges(ctx)
	if err != nil {
		return err
	}
	if access.Can(privs, access.ListMatriculations) {
		return nil
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	if access.Can(privs, access.ViewInstructorDiscipline) {
		filter.InstructorID = usr.ID
	} else {
		filter.UserID = usr.ID
	}
	return nil
}

func (api *matriculationApi) query(ctx echo.Context) error {
	var filter matriculation.QueryFilter
	page, orderings, err := bindList(ctx, &filter, matriculationOrderings)
	if err != nil {
		return err
	}
	filter.Clean()
	if err = api.scope(ctx, &filter); err != nil {
		return err
	}

	ms, count, err := api.svc.Query(ctx.Request().Context(), filter, page, orderings)
	if err != nil {
		return errors.Wrap(err, "querying matriculations")
	}
	return sendPage(ctx, ms, count)
}

func (api *matriculationApi) create(ctx echo.Context) error {
	var data matriculation.NewMatriculation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMatriculation")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating matriculation")
	}
	return ctx.JSON(http.StatusCreated, m)
}

// retrieve answers 404 for matriculations outside the user's scope.
func (api *matriculationApi) retrieve(ctx echo.Context) error {
	m, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding matriculation by ID")
	}

	filter := matriculation.QueryFilter{UserID: m.UserID, DisciplineID: m.DisciplineID}
	if err = api.scope(ctx, &filter); err != nil {
		return err
	}
	if filter.UserID != m.UserID {
		return matriculation.ErrNotFound
	}
	if filter.InstructorID != "" {
		_, count, err := api.svc.Query(ctx.Request().Context(), filter, core.Pagination{Page: 1, PageSize: 1}, nil)
		if err != nil {
			return errors.Wrap(err, "checking instructor scope")
		}
		if count == 0 {
			return matriculation.ErrNotFound
		}
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *matriculationApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding matriculation by ID")
	}

	var data matriculation.UpdateMatriculation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMatriculation")
	}
	if err = data.Validate(ctx.Request().Context(), orig, api.validate, api.svc); err != nil {
		return err
	}

	m, err := api.svc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating matriculation")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *matriculationApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting matriculation")
	}
	return ctx.NoContent(http.StatusNoContent)
}
