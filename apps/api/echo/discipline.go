package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/user"
)

var disciplineOrderings = map[string]string{
	"name":       "name",
	"status":     "status",
	"created_at": "created_at",
}

type disciplineApi struct {
	svc      *discipline.Service
	users    user.Service
	gate     *gate
	validate *validator.Validate
}

func registerDisciplineAPI(g *echo.Group, jwt echo.MiddlewareFunc, gate *gate, deps ServerDeps) {
	api := disciplineApi{
		svc:      deps.DisciplineSvc,
		users:    deps.UserSvc,
		gate:     gate,
		validate: deps.Validate,
	}

	dg := g.Group("/disciplines", jwt)
	dg.GET("", api.query, gate.any(access.ListDisciplines, access.ViewInstructorDiscipline, access.ViewDiscipline))
	dg.POST("", api.create, gate.any(access.CreateDiscipline))
	dg.GET("/:id", api.retrieve, gate.any(access.ViewDiscipline, access.ViewInstructorDiscipline))
	dg.PUT("/:id", api.update, gate.any(access.UpdateDiscipline))
	dg.DELETE("/:id", api.destroy, gate.any(access.DeleteDiscipline))
}

// query lists every discipline for holders of list_disciplines. Instructors otherwise see
// the disciplines they teach, and practitioners the ones they are matriculated in.
func (api *disciplineApi) query(ctx echo.Context) error {
	var filter discipline.QueryFilter
	page, orderings, err := bindList(ctx, &filter, disciplineOrderings)
	if err != nil {
		return err
	}
	filter.Clean()

	privs, err := api.gate.privileges(ctx)
	if err != nil {
		return err
	}
	if !access.Can(privs, access.ListDisciplines) {
		usr, err := getContextUser(ctx, api.users)
		if err != nil {
			return err
		}
		if access.Can(privs, access.ViewInstructorDiscipline) {
			filter.InstructorID = usr.ID
		} else {
			filter.PractitionerID = usr.ID
		}
	}

	disciplines, count, err := api.svc.Query(ctx.Request().Context(), filter, page, orderings)
	if err != nil {
		return errors.Wrap(err, "querying disciplines")
	}
	return sendPage(ctx, disciplines, count)
}

func (api *disciplineApi) create(ctx echo.Context) error {
	var data discipline.NewDiscipline
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDiscipline")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	d, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating discipline")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *disciplineApi) retrieve(ctx echo.Context) error {
	d, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding discipline by ID")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *disciplineApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding discipline by ID")
	}

	var data discipline.UpdateDiscipline
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDiscipline")
	}
	if err = data.Validate(ctx.Request().Context(), orig, api.validate, api.svc); err != nil {
		return err
	}

	d, err := api.svc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating discipline")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *disciplineApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting discipline")
	}
	return ctx.NoContent(http.StatusNoContent)
}
