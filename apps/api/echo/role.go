package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/role"
)

var roleOrderings = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

type roleApi struct {
	svc      *role.Service
	validate *validator.Validate
}

func registerRoleAPI(g *echo.Group, jwt echo.MiddlewareFunc, gate *gate, deps ServerDeps) {
	api := roleApi{
		svc:      deps.RoleSvc,
		validate: deps.Validate,
	}

	rg := g.Group("/roles", jwt)
	rg.GET("", api.query, gate.any(access.ListRoles))
	rg.POST("", api.create, gate.any(access.CreateRole))
	rg.GET("/:id", api.retrieve, gate.any(access.ViewRole))
	rg.PUT("/:id", api.update, gate.any(access.UpdateRole))
	rg.DELETE("/:id", api.destroy, gate.any(access.DeleteRole))
	rg.GET("/:id/privileges", api.privileges, gate.any(access.ViewRole))
	rg.PUT("/:id/privileges", api.togglePrivileges, gate.any(access.AssignPrivilege))
}

func (api *roleApi) query(ctx echo.Context) error {
	var filter role.QueryFilter
	page, orderings, err := bindList(ctx, &filter, roleOrderings)
	if err != nil {
		return err
	}
	filter.Clean()

	roles, count, err := api.svc.Query(ctx.Request().Context(), filter, page, orderings)
	if err != nil {
		return errors.Wrap(err, "querying roles")
	}
	return sendPage(ctx, roles, count)
}

func (api *roleApi) create(ctx echo.Context) error {
	var data role.NewRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRole")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating role")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *roleApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding role by ID")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *roleApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding role by ID")
	}

	var data role.UpdateRole
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRole")
	}
	if err = data.Validate(ctx.Request().Context(), orig, api.validate, api.svc); err != nil {
		return err
	}

	r, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating role")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *roleApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting role")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roleApi) privileges(ctx echo.Context) error {
	privs, err := api.svc.RolePrivileges(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying role privileges")
	}
	if privs == nil {
		privs = []access.Privilege{}
	}
	return ctx.JSON(http.StatusOK, privs)
}

func (api *roleApi) togglePrivileges(ctx echo.Context) error {
	var data role.TogglePrivileges
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TogglePrivileges")
	}

	res, err := api.svc.TogglePrivileges(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "toggling role privileges")
	}
	return sendBatch(ctx, res)
}
