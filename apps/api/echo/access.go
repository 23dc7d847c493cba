package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/user"
)

type accessApi struct {
	users    user.Service
	roles    *role.Service
	resolver *access.Resolver
}

func registerAccessAPI(g *echo.Group, jwt echo.MiddlewareFunc, gate *gate, deps ServerDeps) {
	api := accessApi{
		users:    deps.UserSvc,
		roles:    deps.RoleSvc,
		resolver: deps.Resolver,
	}

	pg := g.Group("/privileges", jwt)
	pg.GET("", api.privileges)
	pg.GET("/by-user/:id", api.userPrivileges, gate.selfOr(access.ViewUser))

	g.GET("/navigation", api.navigation, jwt)
	g.GET("/access", api.check, jwt)
}

func (api *accessApi) privileges(ctx echo.Context) error {
	privs, err := api.roles.Privileges(ctx.Request().Context(), ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "querying privileges")
	}
	if privs == nil {
		privs = []access.Privilege{}
	}
	return ctx.JSON(http.StatusOK, privs)
}

func (api *accessApi) userPrivileges(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := api.users.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	privs, err := api.roles.UserPrivileges(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "resolving user privileges")
	}
	return ctx.JSON(http.StatusOK, privs)
}

func (api *accessApi) navigation(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.resolver.Resolve(ctx.Request().Context(), usr.ID))
}

// check runs the Access Gate for the portals: "?privilege=a&privilege=b&mode=all".
func (api *accessApi) check(ctx echo.Context) error {
	mode, err := access.ParseMode(ctx.QueryParam("mode"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "mode", Error: err.Error()})
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}

	class, privs, err := api.resolver.Classify(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "classifying user")
	}
	return ctx.JSON(http.StatusOK, AccessResponse{
		Allowed: access.HasAccess(privs, mode, ctx.QueryParams()["privilege"]...),
		Role:    class,
	})
}

type AccessResponse struct {
	Allowed bool         `json:"allowed"`
	Role    access.Class `json:"role"`
}
